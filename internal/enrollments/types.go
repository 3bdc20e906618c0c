package enrollments

import "time"

// Payment statuses carried on an enrollment record.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
)

// DefaultCohortID is stamped when the paid order carries no cohort.
const DefaultCohortID = "default"

// Enrollment is the item stored in the enrollments DynamoDB table. One
// record per user: a second paid order for the same user overwrites.
type Enrollment struct {
	UserID        string    `dynamodbav:"user_id"` // PK
	CourseID      string    `dynamodbav:"course_id,omitempty"`
	CohortID      string    `dynamodbav:"cohort_id"`
	PaymentStatus string    `dynamodbav:"payment_status"`
	UpdatedAt     time.Time `dynamodbav:"updated_at"`
}
