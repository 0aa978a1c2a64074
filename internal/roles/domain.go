package roles

// Role is a fine-grained permission grouping owned by its creator.
// Ownership determines who may rename or delete it.
type Role struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedBy int64  `json:"created_by"`
}
