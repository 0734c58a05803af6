package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/EluvK/syncstore/synerr"
)

func encodeCursor(updatedAt int64, id string) string {
	return fmt.Sprintf("%d:%s", updatedAt, id)
}

func decodeCursor(cursor string) (updatedAt int64, id string, err error) {
	idx := strings.IndexByte(cursor, ':')
	if idx < 0 {
		return 0, "", synerr.New("store.decodeCursor", synerr.Internal, "malformed cursor")
	}
	updatedAt, convErr := strconv.ParseInt(cursor[:idx], 10, 64)
	if convErr != nil {
		return 0, "", synerr.New("store.decodeCursor", synerr.Internal, "malformed cursor")
	}
	return updatedAt, cursor[idx+1:], nil
}
