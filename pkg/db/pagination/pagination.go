package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strconv"

	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=50" validate:"gte=1,lte=250"`
}

// Size clamps the requested page size into [1, MaxPageSize].
func (p Pagination) Size() int {
	switch {
	case p.PageSize <= 0:
		return DefaultPageSize
	case p.PageSize > MaxPageSize:
		return MaxPageSize
	default:
		return p.PageSize
	}
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token"`
	HasMore       bool   `json:"has_more"`
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.URLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		return nil, err
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, err
	}

	return &cursor, nil
}

// Apply orders by id descending and fetches one row beyond the page so callers can detect more.
// Snowflake ids grow with time, so the id alone is a stable cursor.
func Apply(stmt *gorm.DB, column string, page Pagination) (*gorm.DB, error) {
	if page.PageToken != "" {
		cursor, err := DecodeCursor(page.PageToken)
		if err != nil {
			return nil, ErrInvalidPageToken
		}
		id, err := strconv.ParseInt(cursor.ID, 10, 64)
		if err != nil || id <= 0 {
			return nil, ErrInvalidPageToken
		}
		stmt = stmt.Where(column+" < ?", id)
	}
	return stmt.Order(column + " DESC").Limit(page.Size() + 1), nil
}

// BuildCursorPageInfo trims data to limit and reports the cursor of the last kept item.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) ([]*T, PageInfo) {
	if len(data) == 0 {
		return data, PageInfo{HasMore: false}
	}

	hasMore := false
	if len(data) > limit {
		hasMore = true
		data = data[:limit]
	}

	info := PageInfo{HasMore: hasMore}
	if hasMore {
		info.NextPageToken = extractCursor(data[len(data)-1])
	}
	return data, info
}

// IDCursor is the extractCursor for rows keyed by a snowflake id.
func IDCursor(id int64) string {
	token, err := EncodeCursor(Cursor{ID: strconv.FormatInt(id, 10)})
	if err != nil {
		return ""
	}
	return token
}
