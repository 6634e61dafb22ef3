package stages

// Event is emitted once for every stage whose timestamp was written.
type Event struct {
	OrderID   string `json:"order_id"`
	OrderName string `json:"order_name,omitempty"`
	StageKey  string `json:"stage_key"`
	StageName string `json:"stage_name"`
	Timestamp string `json:"timestamp"`
	Staff     string `json:"staff,omitempty"`
}
