// README: Vehicle registered by a user; owning one makes the user a driver.
package vehicle

import (
	"time"

	"carpool/internal/types"
)

type Vehicle struct {
	UserID    types.ID  `json:"user_id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      int       `json:"year"`
	Color     string    `json:"color"`
	Plate     string    `json:"plate"`
	Seats     int       `json:"seats"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

const minYear = 1950
