package model

// Canonical field names shared by the index weight profile, the query
// parser's boost targets and the ranker's label matching.
const (
	FieldProjectName        = "project_name"
	FieldProjectDescription = "project_description"
	FieldAreaDescription    = "area_description"
	FieldJobDescription     = "job_description"
	FieldRemarks            = "remarks"
	FieldUpdatedBy          = "updated_by"
	FieldCreatedBy          = "created_by"
	FieldResponsibleName    = "responsible_name"
	FieldContactName        = "contact_name"
	FieldContactEmail       = "contact_email"
	FieldContactPhone       = "contact_phone"
)
