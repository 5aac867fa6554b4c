package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

type PageInfo struct {
	StartCursor string `json:"startCursor"`
	EndCursor   string `json:"endCursor"`
	HasNextPage *bool  `json:"hasNextPage,omitempty"`
}

func EncodeIdCursor(id int) string {
	return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(id)))
}

func DecodeIdCursor(cursor *string) (int, error) {
	if cursor == nil || *cursor == "" {
		return 0, nil
	}
	b, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return 0, err
	}
	id, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Composite cursors order by (created_at, id) so rows sharing a
// timestamp paginate deterministically.
func EncodeCompositeCursor(createdAt string, id int) string {
	cursor := fmt.Sprintf("%s|%d", createdAt, id)
	return base64.StdEncoding.EncodeToString([]byte(cursor))
}

func DecodeCompositeCursor(cursor *string) (string, int) {
	if cursor == nil || *cursor == "" {
		return "", 0
	}

	decoded, err := base64.StdEncoding.DecodeString(*cursor)
	if err != nil {
		return "", 0
	}

	parts := strings.Split(string(decoded), "|")
	if len(parts) != 2 {
		return "", 0
	}

	id, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", 0
	}

	return parts[0], id
}
