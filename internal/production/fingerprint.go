package production

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SelectionFingerprint derives a deterministic cache key component from the
// generation inputs: channel, date key, and the selected item ids. Item order
// does not matter; the same selection always yields the same fingerprint.
func SelectionFingerprint(channelID, dateKey string, itemIDs []string) string {
	ids := make([]string, 0, len(itemIDs))
	for _, id := range itemIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(strings.TrimSpace(channelID))
	b.WriteByte('|')
	b.WriteString(strings.TrimSpace(dateKey))
	b.WriteByte('|')
	b.WriteString(strings.Join(ids, ","))

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
