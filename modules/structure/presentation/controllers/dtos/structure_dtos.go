package dtos

import (
	"time"

	"github.com/atviriduomenys/katalogas-sub000/modules/structure/domain/aggregates/structure"
)

type CreateDatasetRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type CreateVersionRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=4000"`
}

// CommentsQuery selects the owner whose comments are listed. Without a
// kind the comments of the last imported file are returned.
type CommentsQuery struct {
	Kind     string `form:"kind" validate:"omitempty,oneof=dataset structure distribution model property base prefix enum enum_item param param_item"`
	ObjectID int64  `form:"object_id" validate:"required_with=Kind,gte=0"`
}

type Dataset struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func DatasetOf(d *structure.Dataset) Dataset {
	return Dataset{ID: d.ID, Name: d.Name, CreatedAt: d.CreatedAt}
}

type Comment struct {
	ID        int64           `json:"id"`
	Owner     structure.Owner `json:"owner"`
	Type      string          `json:"type"`
	Body      string          `json:"body"`
	User      string          `json:"user,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

func CommentsOf(comments []*structure.Comment) []Comment {
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		out = append(out, Comment{
			ID:        c.ID,
			Owner:     c.Owner,
			Type:      string(c.Type),
			Body:      c.Body,
			User:      c.User,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

type Version struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Frozen      int       `json:"frozen,omitempty"`
}

func VersionOf(v *structure.Version, frozen int) Version {
	return Version{ID: v.ID, Name: v.Name, Description: v.Description, CreatedAt: v.CreatedAt, Frozen: frozen}
}
