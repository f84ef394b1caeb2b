package availability

// Slot is one bookable bucket of a business day. Available is the spare
// capacity after local bookings and external busy intervals; a slot can be
// booked only while Available > 0.
type Slot struct {
	Date        string `json:"date"`       // 2006-01-02
	StartTime   string `json:"start_time"` // 15:04
	EndTime     string `json:"end_time"`   // 15:04
	Capacity    int    `json:"capacity"`
	BookedCount int    `json:"booked_count"`
	Available   int    `json:"available"`
}
