package models

// GroupCount is one bucket of a dashboard breakdown.
type GroupCount struct {
	ID    string `json:"_id"`
	Count int64  `json:"count"`
}

type StudentStats struct {
	TotalStudents  int64        `json:"totalStudents"`
	ActiveStudents int64        `json:"activeStudents"`
	DepartmentWise []GroupCount `json:"departmentWise"`
}

type StaffStats struct {
	TotalStaff      int64        `json:"totalStaff"`
	ActiveStaff     int64        `json:"activeStaff"`
	DepartmentWise  []GroupCount `json:"departmentWise"`
	DesignationWise []GroupCount `json:"designationWise"`
}
