package listings

import (
	"time"
)

type SettingsSavedEvent struct {
	ListingID ListingID `json:"listing_id"`
	BaseRate  int       `json:"base_rate"`
	GapDays   int       `json:"gap_days"`
	Created   bool      `json:"created"`
	At        time.Time `json:"at"`
}

func (e SettingsSavedEvent) EventName() string     { return "settings.saved" }
func (e SettingsSavedEvent) AggregateID() string   { return string(e.ListingID) }
func (e SettingsSavedEvent) OccurredAt() time.Time { return e.At }
