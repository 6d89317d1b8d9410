package authz

// Scope builders map a caller to the predicate that bounds a bulk query over
// one resource type. They are total: every role/resource pair has an answer,
// and the answer for an unrecognized role is Never, not an error.
//
// Column names follow the aliases the repositories use in their queries:
// single-table scopes use bare column names; scopes that span the plan and
// patient tables use "tp" (treatment_plan), "sn" (session_note),
// "c" (comment), "ar" (ai_review), and "p" (patient).

// PatientScope bounds patient list queries. Admin-tier roles see the whole
// organization; a BCBA sees patients assigned to them; RBT/BT see patients
// they are assigned to as technician. HR and unknown roles see nothing.
func PatientScope(caller Caller) Predicate {
	if !caller.HasOrg() {
		return Never()
	}
	base := []Predicate{
		Eq("organization_id", caller.OrgID),
		IsNull("deleted_at"),
	}
	switch {
	case IsAdminTier(caller.Role):
		return And(base...)
	case caller.Role == RoleBCBA:
		return And(append(base, Eq("assigned_bcba_id", caller.UserID))...)
	case caller.Role == RoleRBT, caller.Role == RoleBT:
		return And(append(base, Eq("assigned_rbt_id", caller.UserID))...)
	default:
		return Never()
	}
}

// TreatmentPlanScope bounds treatment-plan list queries. Clinical roles see
// plans they created or plans for patients assigned to them.
func TreatmentPlanScope(caller Caller) Predicate {
	if !caller.HasOrg() {
		return Never()
	}
	base := []Predicate{
		Eq("tp.organization_id", caller.OrgID),
		IsNull("tp.deleted_at"),
	}
	switch {
	case IsAdminTier(caller.Role):
		return And(base...)
	case IsClinical(caller.Role):
		return And(append(base, Or(
			Eq("tp.created_by_id", caller.UserID),
			Eq("p.assigned_bcba_id", caller.UserID),
			Eq("p.assigned_rbt_id", caller.UserID),
		))...)
	default:
		return Never()
	}
}

// SessionNoteScope mirrors TreatmentPlanScope for session notes.
func SessionNoteScope(caller Caller) Predicate {
	if !caller.HasOrg() {
		return Never()
	}
	base := []Predicate{
		Eq("sn.organization_id", caller.OrgID),
		IsNull("sn.deleted_at"),
	}
	switch {
	case IsAdminTier(caller.Role):
		return And(base...)
	case IsClinical(caller.Role):
		return And(append(base, Or(
			Eq("sn.created_by_id", caller.UserID),
			Eq("p.assigned_bcba_id", caller.UserID),
			Eq("p.assigned_rbt_id", caller.UserID),
		))...)
	default:
		return Never()
	}
}

// CommentScope makes a comment visible exactly when its parent plan is
// visible, excluding soft-deleted comments.
func CommentScope(caller Caller) Predicate {
	plan := TreatmentPlanScope(caller)
	if !Satisfiable(plan) {
		return Never()
	}
	return And(IsNull("c.deleted_at"), plan)
}

// TemplateScope: public templates, the caller's organization's templates, and
// the caller's own templates are visible. There is no role gate on reading
// templates, only on creating and editing them.
func TemplateScope(caller Caller) Predicate {
	if !caller.HasOrg() {
		return Never()
	}
	return And(
		IsNull("deleted_at"),
		Or(
			Eq("is_public", true),
			Eq("organization_id", caller.OrgID),
			Eq("created_by_id", caller.UserID),
		),
	)
}

// NotificationScope: the caller's own notifications, within the current
// organization or system-wide (null organization).
func NotificationScope(caller Caller) Predicate {
	if !caller.HasOrg() {
		return Never()
	}
	return And(
		Eq("user_id", caller.UserID),
		Or(
			Eq("organization_id", caller.OrgID),
			IsNull("organization_id"),
		),
	)
}

// AuditLogScope: admin-tier roles only, always bounded to the organization.
func AuditLogScope(caller Caller) Predicate {
	if !caller.HasOrg() || !IsAdminTier(caller.Role) {
		return Never()
	}
	return Eq("organization_id", caller.OrgID)
}

// UserScope bounds team listings: admin-tier roles only.
func UserScope(caller Caller) Predicate {
	if !caller.HasOrg() || !IsAdminTier(caller.Role) {
		return Never()
	}
	return And(
		Eq("organization_id", caller.OrgID),
		IsNull("deleted_at"),
	)
}

// AIReviewScope scopes AI reviews exactly like the plans they review, with a
// mandatory organization match on the review row itself.
func AIReviewScope(caller Caller) Predicate {
	plan := TreatmentPlanScope(caller)
	if !Satisfiable(plan) {
		return Never()
	}
	return And(Eq("ar.organization_id", caller.OrgID), plan)
}

// TrainingModuleScope: modules in the caller's organization plus modules
// published platform-wide (null organization). Not role-gated.
func TrainingModuleScope(caller Caller) Predicate {
	if !caller.HasOrg() {
		return Never()
	}
	return Or(
		Eq("organization_id", caller.OrgID),
		IsNull("organization_id"),
	)
}
