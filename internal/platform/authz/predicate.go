package authz

import "github.com/google/uuid"

// Snapshot types carry the ownership and assignment fields the predicate
// engine needs from a fully-loaded entity. Domain models convert themselves
// into these before asking for a decision, which keeps this package free of
// domain imports.

// PatientRef is the access-relevant slice of a patient row.
type PatientRef struct {
	OrgID          uuid.UUID
	AssignedBCBAID uuid.UUID
	AssignedRBTID  uuid.UUID
	Deleted        bool
}

// PlanRef is the access-relevant slice of a treatment plan plus its patient.
type PlanRef struct {
	OrgID       uuid.UUID
	CreatedByID uuid.UUID
	Status      string
	Patient     PatientRef
	Deleted     bool
}

// NoteRef is the access-relevant slice of a session note plus its patient.
type NoteRef struct {
	OrgID       uuid.UUID
	CreatedByID uuid.UUID
	Patient     PatientRef
	Deleted     bool
}

// CommentRef is the access-relevant slice of a plan comment.
type CommentRef struct {
	OrgID       uuid.UUID
	CreatedByID uuid.UUID
	Plan        PlanRef
	Deleted     bool
}

// TemplateRef is the access-relevant slice of a template. OrgID is Nil for
// platform-public templates.
type TemplateRef struct {
	OrgID       uuid.UUID
	CreatedByID uuid.UUID
	IsPublic    bool
}

// Plan statuses the predicate engine compares against. The canonical labels
// are owned by the plan domain; these must stay in sync with it.
const (
	planStatusDraft          = "DRAFT"
	planStatusPendingBCBA    = "PENDING_BCBA_REVIEW"
	planStatusPendingManager = "PENDING_MANAGER_REVIEW"
)

// sameOrg is the first gate of every predicate: an entity from a foreign
// organization is denied regardless of role.
func sameOrg(caller Caller, entityOrg uuid.UUID) bool {
	return caller.HasOrg() && entityOrg != uuid.Nil && caller.OrgID == entityOrg
}

func assignedTo(caller Caller, p PatientRef) bool {
	switch caller.Role {
	case RoleBCBA:
		return p.AssignedBCBAID == caller.UserID
	case RoleRBT, RoleBT:
		return p.AssignedRBTID == caller.UserID
	default:
		return false
	}
}

// -- Patient --

func CanViewPatient(caller Caller, p PatientRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	return IsAdminTier(caller.Role) || assignedTo(caller, p)
}

func CanCreatePatient(caller Caller) bool {
	if !caller.HasOrg() {
		return false
	}
	return IsAdminTier(caller.Role) || caller.Role == RoleBCBA
}

// CanEditPatient: admin tier edits anyone in the org; a BCBA edits only
// assigned patients; RBT/BT are view-only on patient records.
func CanEditPatient(caller Caller, p PatientRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	if IsAdminTier(caller.Role) {
		return true
	}
	return caller.Role == RoleBCBA && p.AssignedBCBAID == caller.UserID
}

func CanDeletePatient(caller Caller, p PatientRef) bool {
	return sameOrg(caller, p.OrgID) && IsAdminTier(caller.Role)
}

// -- Treatment plan --

func CanViewTreatmentPlan(caller Caller, p PlanRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	if IsAdminTier(caller.Role) {
		return true
	}
	if !IsClinical(caller.Role) {
		return false
	}
	return p.CreatedByID == caller.UserID || assignedTo(caller, p.Patient)
}

// CanEditTreatmentPlan: RBT and BT are view-only roles and can never edit a
// plan, even one they could otherwise see. A BCBA edits only their own plan
// and only while it is still a draft.
func CanEditTreatmentPlan(caller Caller, p PlanRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	if IsViewOnlyClinical(caller.Role) {
		return false
	}
	if IsAdminTier(caller.Role) {
		return true
	}
	return caller.Role == RoleBCBA &&
		p.CreatedByID == caller.UserID &&
		p.Status == planStatusDraft
}

func CanCreateTreatmentPlan(caller Caller) bool {
	if !caller.HasOrg() {
		return false
	}
	return IsAdminTier(caller.Role) || caller.Role == RoleBCBA
}

// CanDeleteTreatmentPlan: the org admin may always delete; the creator may
// delete their own plan only while it is a draft.
func CanDeleteTreatmentPlan(caller Caller, p PlanRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	if caller.Role == RoleOrgAdmin {
		return true
	}
	return p.CreatedByID == caller.UserID && p.Status == planStatusDraft
}

func CanSubmitForReview(caller Caller, p PlanRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	return p.CreatedByID == caller.UserID && p.Status == planStatusDraft
}

// CanReviewTreatmentPlan gates approve/reject by exact stage: a BCBA acts
// only at BCBA review, a clinical manager only at manager review.
func CanReviewTreatmentPlan(caller Caller, p PlanRef) bool {
	if !sameOrg(caller, p.OrgID) || p.Deleted {
		return false
	}
	switch p.Status {
	case planStatusPendingBCBA:
		return caller.Role == RoleBCBA
	case planStatusPendingManager:
		return caller.Role == RoleClinicalManager
	default:
		return false
	}
}

// CanCommentOnPlan: anyone who can view the plan can comment on it.
func CanCommentOnPlan(caller Caller, p PlanRef) bool {
	return CanViewTreatmentPlan(caller, p)
}

func CanDeleteComment(caller Caller, c CommentRef) bool {
	if !sameOrg(caller, c.OrgID) || c.Deleted {
		return false
	}
	return c.CreatedByID == caller.UserID || caller.Role == RoleOrgAdmin
}

// -- Session note --

func CanViewSessionNote(caller Caller, n NoteRef) bool {
	if !sameOrg(caller, n.OrgID) || n.Deleted {
		return false
	}
	if IsAdminTier(caller.Role) {
		return true
	}
	if !IsClinical(caller.Role) {
		return false
	}
	return n.CreatedByID == caller.UserID || assignedTo(caller, n.Patient)
}

// CanEditSessionNote: notes are mutable only by their owner or an admin-tier
// role.
func CanEditSessionNote(caller Caller, n NoteRef) bool {
	if !sameOrg(caller, n.OrgID) || n.Deleted {
		return false
	}
	return IsAdminTier(caller.Role) || n.CreatedByID == caller.UserID
}

func CanCreateSessionNote(caller Caller) bool {
	if !caller.HasOrg() {
		return false
	}
	return IsAdminTier(caller.Role) || IsClinical(caller.Role)
}

// -- Template --

func CanCreateTemplate(caller Caller) bool {
	if !caller.HasOrg() {
		return false
	}
	return IsAdminTier(caller.Role) || caller.Role == RoleBCBA
}

// CanEditTemplate: an admin of the template's organization, or its creator.
// Platform-public templates (no organization) are editable by the creator
// only.
func CanEditTemplate(caller Caller, t TemplateRef) bool {
	if !caller.HasOrg() {
		return false
	}
	if t.CreatedByID == caller.UserID {
		return true
	}
	return t.OrgID != uuid.Nil && t.OrgID == caller.OrgID && IsAdminTier(caller.Role)
}

func CanDeleteTemplate(caller Caller, t TemplateRef) bool {
	return CanEditTemplate(caller, t)
}

// -- Administration --

// CanManageUsers: admin tier plus HR, which handles onboarding without any
// clinical data access.
func CanManageUsers(caller Caller) bool {
	if !caller.HasOrg() {
		return false
	}
	return IsAdminTier(caller.Role) || caller.Role == RoleHRManager
}

func CanUpdateOrganization(caller Caller) bool {
	return caller.HasOrg() && IsAdminTier(caller.Role)
}

func CanViewAuditLogs(caller Caller) bool {
	return caller.HasOrg() && IsAdminTier(caller.Role)
}

func CanViewReports(caller Caller) bool {
	return caller.HasOrg() && IsAdminTier(caller.Role)
}
