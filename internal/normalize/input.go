package normalize

import (
	"bytes"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type inputStats struct {
	kept       int
	dropped    int
	cleared    int
	duplicates int
}

// sanitizeInput rebuilds an input array without reasoning items and with
// message ids nulled. Reasoning items reference server-side rs_* ids that do
// not exist once store=false. Other elements are kept verbatim and in order.
func sanitizeInput(input gjson.Result) ([]byte, inputStats) {
	var (
		buf   bytes.Buffer
		stats inputStats
	)
	buf.WriteByte('[')
	input.ForEach(func(_, item gjson.Result) bool {
		raw := item.Raw
		if item.IsObject() {
			if collapsed, n := collapseDuplicateKeys(item); n > 0 {
				raw = collapsed
				item = gjson.Parse(raw)
				stats.duplicates += n
			}
			switch item.Get("type").String() {
			case "reasoning":
				stats.dropped++
				return true
			case "message":
				if item.Get("id").Exists() {
					if updated, err := sjson.SetRaw(raw, "id", "null"); err == nil {
						raw = updated
						stats.cleared++
					}
				}
			}
		}
		if stats.kept > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(raw)
		stats.kept++
		return true
	})
	buf.WriteByte(']')
	return buf.Bytes(), stats
}
