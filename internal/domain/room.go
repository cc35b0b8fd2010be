package domain

type Room struct {
	ID         int    `db:"id" json:"id"`
	Building   string `db:"building" json:"building"`
	RoomNumber string `db:"room_number" json:"room_number"`
	Capacity   int    `db:"capacity" json:"capacity"`
}

// Label is the display form used on calendar events, e.g. "B101".
func (r Room) Label() string {
	return r.Building + r.RoomNumber
}
