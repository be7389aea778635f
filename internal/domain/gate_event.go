package domain

// GateEvent is produced by the entry/exit barriers and delivered through the
// gate queue. Direction is "entry" or "exit"; Timestamp is RFC3339.
type GateEvent struct {
	EventID      string `json:"event_id"`
	LotID        int    `json:"lot_id"`
	LicensePlate string `json:"license_plate"`
	Direction    string `json:"direction"`
	Timestamp    string `json:"timestamp"`
}
