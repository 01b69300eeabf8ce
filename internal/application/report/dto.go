package report

import (
	"time"

	"github.com/google/uuid"
)

// SalesReportQuery selects the period of a sales summary. Both dates are
// inclusive.
type SalesReportQuery struct {
	From     time.Time  `form:"from" time_format:"2006-01-02" binding:"required"`
	To       time.Time  `form:"to" time_format:"2006-01-02" binding:"required"`
	SellerID *uuid.UUID `form:"seller_id"`
	TopN     int        `form:"top" binding:"omitempty,min=1,max=50"`
}
