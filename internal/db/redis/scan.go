package redis

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/tagdex/internal/db"
)

const scanCount = 100

// ScanPage runs one SCAN step. The cursor is opaque: "" starts an iteration and an
// empty next cursor ends it. SCAN is keyless, so a cluster client would send it to one
// arbitrary node; cluster deployments instead walk every node in address order and
// carry the node position in the cursor ("<node>/<cursor>").
func (s *Store) ScanPage(ctx context.Context, pattern, cursor string, count int) ([]string, string, error) {
	if count <= 0 {
		count = scanCount
	}
	nodes := s.scanNodes()
	node, pos, err := parseScanCursor(cursor, len(nodes))
	if err != nil {
		return nil, "", err
	}

	cmd := nodes[node].B().Scan().Cursor(pos).Match(pattern).Count(int64(count)).Build()
	res, err := s.doOn(ctx, nodes[node], cmd).AsScanEntry()
	if err != nil {
		return nil, "", s.opErr(db.OpScan, err)
	}

	var next string
	switch {
	case res.Cursor != 0:
		next = formatScanCursor(node, res.Cursor, len(nodes))
	case node+1 < len(nodes):
		next = formatScanCursor(node+1, 0, len(nodes))
	}
	return res.Elements, next, nil
}

// Scan iterates every key matching a pattern.
func (s *Store) Scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	cursor := ""
	for {
		page, next, err := s.ScanPage(ctx, pattern, cursor, scanCount)
		if err != nil {
			return nil, err
		}
		keys = append(keys, page...)
		if next == "" {
			return keys, nil
		}
		cursor = next
	}
}

// scanNodes lists the clients a full SCAN must visit, in a stable order.
func (s *Store) scanNodes() []rueidis.Client {
	if s.standalone {
		return []rueidis.Client{s.client}
	}
	nodes := s.client.Nodes()
	if len(nodes) == 0 {
		return []rueidis.Client{s.client}
	}
	addrs := make([]string, 0, len(nodes))
	for addr := range nodes {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)
	out := make([]rueidis.Client, len(addrs))
	for i, addr := range addrs {
		out[i] = nodes[addr]
	}
	return out
}

func parseScanCursor(cursor string, nodes int) (node int, pos uint64, err error) {
	if cursor == "" {
		return 0, 0, nil
	}
	raw := cursor
	if nodes > 1 {
		n, rest, ok := strings.Cut(cursor, "/")
		if !ok {
			return 0, 0, fmt.Errorf("%w: %q", db.ErrInvalidCursor, cursor)
		}
		node, err = strconv.Atoi(n)
		if err != nil || node < 0 || node >= nodes {
			return 0, 0, fmt.Errorf("%w: %q", db.ErrInvalidCursor, cursor)
		}
		raw = rest
	}
	pos, err = strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", db.ErrInvalidCursor, cursor)
	}
	return node, pos, nil
}

func formatScanCursor(node int, pos uint64, nodes int) string {
	if nodes > 1 {
		return strconv.Itoa(node) + "/" + strconv.FormatUint(pos, 10)
	}
	return strconv.FormatUint(pos, 10)
}
