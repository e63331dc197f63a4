package request

// DashboardRequest bounds the dashboard period by calendar day, both ends inclusive.
type DashboardRequest struct {
	From *string `validate:"omitempty,datetime=2006-01-02"`
	To   *string `validate:"omitempty,datetime=2006-01-02"`
}
