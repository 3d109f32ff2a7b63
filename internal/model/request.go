package model

// Request is one denormalized business request row as synced from the
// ticketing system. Rows are read-only here; the sync side owns writes.
// StatusDate is the due/target date in unix seconds, zero when unset.
type Request struct {
	ID                 string `json:"id"`
	ProjectName        string `json:"project_name"`
	ProjectDescription string `json:"project_description"`
	AreaDescription    string `json:"area_description"`
	JobDescription     string `json:"job_description"`
	Remarks            string `json:"remarks"`
	TypeID             int64  `json:"type_id"`
	StatusID           int64  `json:"status_id"`
	UpdatedBy          string `json:"updated_by"`
	CreatedBy          string `json:"created_by"`
	ResponsibleName    string `json:"responsible_name"`
	ContactName        string `json:"contact_name"`
	ContactEmail       string `json:"contact_email"`
	ContactPhone       string `json:"contact_phone"`
	StatusDate         int64  `json:"status_date"`
	Ctime              int64  `json:"ctime"`
	Mtime              int64  `json:"mtime"`
}
