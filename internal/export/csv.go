package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ooh-map/internal/model"
)

// WriteCSV writes the header row unquoted and every value double-quoted, with
// rows separated by "\n" and no trailing newline. NULL and missing fields
// are written as "".
func WriteCSV(w io.Writer, headers []string, recs []model.Record) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(strings.Join(headers, ",")); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}

	for _, rec := range recs {
		bw.WriteByte('\n') //nolint:errcheck
		for i, h := range headers {
			if i > 0 {
				bw.WriteByte(',') //nolint:errcheck
			}
			bw.WriteString(quote(rec.Get(h))) //nolint:errcheck
		}
	}

	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "export: write csv")
	}
	return nil
}

func quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}
