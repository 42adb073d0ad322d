package notifications

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sioms/sioms/internal/platform/db"
	"github.com/sioms/sioms/internal/shared"
)

// Repository persists notifications in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const notificationColumns = `id, user_id, title, message, type, reference_id, is_read, created_at`

func scanNotification(row pgx.Row) (Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.ReferenceID, &n.IsRead, &n.CreatedAt)
	return n, err
}

// Insert appends a notification, joining the caller's transaction when present.
func (r *Repository) Insert(ctx context.Context, n Notification) (Notification, error) {
	row := db.Conn(ctx, r.pool).QueryRow(ctx, `INSERT INTO notifications (user_id, title, message, type, reference_id)
VALUES ($1,$2,$3,$4,$5) RETURNING `+notificationColumns, n.UserID, n.Title, n.Message, string(n.Type), n.ReferenceID)
	out, err := scanNotification(row)
	if err != nil {
		return Notification{}, db.Translate(err)
	}
	return out, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (Notification, error) {
	n, err := scanNotification(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Notification{}, &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return n, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Notification, error) {
	conds := []string{"1=1"}
	args := []any{}
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		conds = append(conds, fmt.Sprintf("(user_id = $%d OR user_id IS NULL)", len(args)))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.IsRead != nil {
		args = append(args, *filter.IsRead)
		conds = append(conds, fmt.Sprintf("is_read = $%d", len(args)))
	}
	args = append(args, filter.Limit)
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE ` + strings.Join(conds, " AND ") +
		` ORDER BY created_at DESC, id DESC LIMIT $` + strconv.Itoa(len(args))
	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repository) MarkRead(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return nil
}

func (r *Repository) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE is_read = FALSE AND (user_id = $1 OR user_id IS NULL)`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "notification", ID: id}
	}
	return nil
}

func (r *Repository) DeleteAllRead(ctx context.Context, userID int64) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND (user_id = $1 OR user_id IS NULL)`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var count int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE is_read = FALSE AND (user_id = $1 OR user_id IS NULL)`, userID).Scan(&count)
	return count, err
}

// DeleteByReference removes notifications of the given types pointing at refID.
func (r *Repository) DeleteByReference(ctx context.Context, refID int64, types ...Type) error {
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM notifications WHERE reference_id=$1 AND type = ANY($2)`, refID, names)
	return err
}

// PurgeRead deletes read notifications created before cutoff.
func (r *Repository) PurgeRead(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM notifications WHERE is_read = TRUE AND created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
