package activity

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("activity not found")

type Store interface {
	PutActivity(ctx context.Context, a Activity) (Activity, error)
	GetActivity(ctx context.Context, id string) (Activity, error)
	ListActivities(ctx context.Context, lessonID string) ([]Activity, error)
}
