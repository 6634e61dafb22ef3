package db

import (
	"time"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

// StageEventItem is one journal row.
// PK = ORDER#<orderId>
// SK = STAGE#<stageKey>
type StageEventItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	OrderID    string `dynamodbav:"OrderId"`
	OrderName  string `dynamodbav:"OrderName,omitempty"`
	StageKey   string `dynamodbav:"StageKey"`
	StageName  string `dynamodbav:"StageName"`
	Timestamp  string `dynamodbav:"Timestamp"`
	Staff      string `dynamodbav:"Staff,omitempty"`
	Day        string `dynamodbav:"Day"`
	RecordedAt string `dynamodbav:"RecordedAt"`
}

func StageEventPK(orderID string) string { return "ORDER#" + orderID }
func StageEventSK(stageKey string) string { return "STAGE#" + stageKey }

// NewStageEventItem keys the event and derives Day (UTC, YYYY-MM-DD) from
// its timestamp, falling back to recordedAt when the timestamp is not RFC3339.
func NewStageEventItem(ev stages.Event, recordedAt time.Time) StageEventItem {
	day := recordedAt.UTC()
	if ts, err := time.Parse(time.RFC3339, ev.Timestamp); err == nil {
		day = ts.UTC()
	}
	return StageEventItem{
		PK:         StageEventPK(ev.OrderID),
		SK:         StageEventSK(ev.StageKey),
		OrderID:    ev.OrderID,
		OrderName:  ev.OrderName,
		StageKey:   ev.StageKey,
		StageName:  ev.StageName,
		Timestamp:  ev.Timestamp,
		Staff:      ev.Staff,
		Day:        day.Format("2006-01-02"),
		RecordedAt: recordedAt.UTC().Format(time.RFC3339),
	}
}

func (i StageEventItem) Event() stages.Event {
	return stages.Event{
		OrderID:   i.OrderID,
		OrderName: i.OrderName,
		StageKey:  i.StageKey,
		StageName: i.StageName,
		Timestamp: i.Timestamp,
		Staff:     i.Staff,
	}
}
