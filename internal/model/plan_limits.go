package model

// Unlimited is the sentinel for a dimension with no ceiling.
const Unlimited int64 = -1

// PlanLimits holds the per-tier ceilings from the subscription plan
// catalog. Count dimensions use Unlimited (-1) for no ceiling; the storage
// ceiling is a magnitude+unit string such as "500MB" parsed by the quota
// gate.
type PlanLimits struct {
	PlanID       string `db:"plan_id" json:"plan_id"`
	PlanName     string `db:"plan_name" json:"plan_name"`
	StudyPlans   int64  `db:"max_study_plans" json:"max_study_plans"`
	AIRequests   int64  `db:"max_ai_requests" json:"max_ai_requests"`
	FileUploads  int64  `db:"max_file_uploads" json:"max_file_uploads"`
	StudyGroups  int64  `db:"max_study_groups" json:"max_study_groups"`
	StorageLimit string `db:"storage_limit" json:"storage_limit"`
}

// Limit returns the ceiling for a count dimension. DimStorageBytes has no
// count ceiling here; its budget comes from StorageLimit.
func (p *PlanLimits) Limit(dim Dimension) int64 {
	switch dim {
	case DimPlansCreated:
		return p.StudyPlans
	case DimAIRequests:
		return p.AIRequests
	case DimFileUploads:
		return p.FileUploads
	case DimGroupsCreated:
		return p.StudyGroups
	default:
		return Unlimited
	}
}
