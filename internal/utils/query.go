package utils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ParseIDList reads a list of ids from the query. Both `key=a,b` and
// repeated `key=a&key=b` forms are accepted; blanks and duplicates are dropped.
func ParseIDList(c *fiber.Ctx, key string) []string {
	var ids []string
	seen := make(map[string]struct{})

	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		if string(k) != key {
			return
		}
		for _, part := range strings.Split(string(v), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, dup := seen[part]; dup {
				continue
			}
			seen[part] = struct{}{}
			ids = append(ids, part)
		}
	})

	return ids
}
