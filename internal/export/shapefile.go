package export

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/ooh-map/internal/coords"
	"github.com/sells-group/ooh-map/internal/model"
)

const (
	dbfNameLen  = 10
	dbfFieldMax = 254
)

// wgs84PRJ is the ESRI WKT for EPSG:4326.
const wgs84PRJ = `GEOGCS["GCS_WGS_1984",DATUM["D_WGS_1984",SPHEROID["WGS_1984",6378137.0,298.257223563]],PRIMEM["Greenwich",0.0],UNIT["Degree",0.0174532925199433]]`

// shapefileParts lists the sidecar extensions zipped with the .shp.
var shapefileParts = []string{".shp", ".shx", ".dbf", ".prj", ".cpg"}

// WriteShapefileZip writes a zipped point shapefile named base.* with one
// feature per record that has a valid coordinate; other records are skipped.
// Attribute names are folded to ASCII and cut to the 10 characters DBF allows.
// It returns the number of features written.
func WriteShapefileZip(w io.Writer, base string, headers []string, recs []model.Record) (int, error) {
	dir, err := os.MkdirTemp("", "ooh-map-shp-")
	if err != nil {
		return 0, eris.Wrap(err, "export: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	n, err := writeShapefile(filepath.Join(dir, base), headers, recs)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, eris.Wrap(ErrEmptyResult, "export: no record has a valid coordinate")
	}

	zw := zip.NewWriter(w)
	for _, ext := range shapefileParts {
		if err := addFile(zw, filepath.Join(dir, base+ext)); err != nil {
			return 0, err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, eris.Wrap(err, "export: close zip")
	}
	return n, nil
}

func writeShapefile(path string, headers []string, recs []model.Record) (int, error) {
	type placed struct {
		pt  coords.Point
		rec model.Record
	}
	var rows []placed
	for i, rec := range recs {
		pt, err := coords.NormalizeRecord(rec)
		if err != nil {
			zap.L().Debug("export: record without coordinate left out of shapefile", zap.Int("index", i), zap.Error(err))
			continue
		}
		rows = append(rows, placed{pt: pt, rec: rec})
	}
	if len(rows) == 0 {
		return 0, nil
	}

	names := dbfNames(headers)
	fields := make([]shp.Field, len(headers))
	sizes := make([]int, len(headers))
	for i, h := range headers {
		size := 1
		for _, r := range rows {
			if l := len(r.rec.Get(h)); l > size {
				size = l
			}
		}
		if size > dbfFieldMax {
			size = dbfFieldMax
		}
		sizes[i] = size
		fields[i] = shp.StringField(names[i], uint8(size))
	}

	sw, err := shp.Create(path+".shp", shp.POINT)
	if err != nil {
		return 0, eris.Wrap(err, "export: create shapefile")
	}
	if err := sw.SetFields(fields); err != nil {
		sw.Close()
		return 0, eris.Wrap(err, "export: set dbf fields")
	}

	for _, r := range rows {
		idx := int(sw.Write(&shp.Point{X: r.pt.Lng, Y: r.pt.Lat}))
		for j, h := range headers {
			if err := sw.WriteAttribute(idx, j, clip(r.rec.Get(h), sizes[j])); err != nil {
				sw.Close()
				return 0, eris.Wrapf(err, "export: write attribute %s", h)
			}
		}
	}
	sw.Close()

	// go-shp v0.1.1 names the table "<base>dbf", without the dot.
	if _, err := os.Stat(path + "dbf"); err == nil {
		if err := os.Rename(path+"dbf", path+".dbf"); err != nil {
			return 0, eris.Wrap(err, "export: rename dbf")
		}
	}

	if err := os.WriteFile(path+".prj", []byte(wgs84PRJ), 0o644); err != nil {
		return 0, eris.Wrap(err, "export: write prj")
	}
	if err := os.WriteFile(path+".cpg", []byte("UTF-8"), 0o644); err != nil {
		return 0, eris.Wrap(err, "export: write cpg")
	}
	return len(rows), nil
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "export: open %s", filepath.Base(path))
	}
	defer f.Close() //nolint:errcheck

	dst, err := zw.Create(filepath.Base(path))
	if err != nil {
		return eris.Wrapf(err, "export: zip %s", filepath.Base(path))
	}
	if _, err := io.Copy(dst, f); err != nil {
		return eris.Wrapf(err, "export: zip %s", filepath.Base(path))
	}
	return nil
}

// dbfNames maps column names to unique DBF field names: accents removed,
// anything outside [A-Z0-9_] replaced by '_', cut to 10 characters.
func dbfNames(headers []string) []string {
	used := make(map[string]bool, len(headers))
	out := make([]string, len(headers))
	for i, h := range headers {
		name := dbfName(h)
		for n := 1; used[name]; n++ {
			suffix := strconv.Itoa(n)
			base := dbfName(h)
			if len(base)+len(suffix) > dbfNameLen {
				base = base[:dbfNameLen-len(suffix)]
			}
			name = base + suffix
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func dbfName(h string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, h)
	if err != nil {
		folded = h
	}

	var b strings.Builder
	for _, r := range strings.ToUpper(folded) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := b.String()
	if name == "" {
		name = "CAMPO"
	}
	if len(name) > dbfNameLen {
		name = name[:dbfNameLen]
	}
	return name
}

// clip cuts s to at most n bytes without splitting a UTF-8 sequence.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
