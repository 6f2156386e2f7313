package app

import "github.com/shopspring/decimal"

// UserSession is the authenticated identity handed to the web layer after a
// successful login.
type UserSession struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// StockResult is the answer to a point stock query.
type StockResult struct {
	ProductID  int             `json:"product_id"`
	LocationID int             `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}
