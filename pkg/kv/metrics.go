package kv

import (
	"io/fs"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
)

// Snapshot is a compact view of Pebble metrics needed by the admin
// surface's metrics poller.
type Snapshot struct {
	OnDiskBytes       uint64
	WALBytes          uint64
	L0Files           int
	L0Bytes           uint64
	CompactionBacklog uint64
}

// Snapshot computes a best-effort metrics snapshot. On-disk size is a
// directory walk; the rest is extracted reflectively from pebble.Metrics
// since its shape has changed across pebble releases and reflection keeps
// us from pinning to one.
func (db *DB) Snapshot() Snapshot {
	var s Snapshot
	if !db.Ready() {
		return s
	}
	if db.path != "" {
		var total uint64
		_ = filepath.WalkDir(db.path, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if fi, ferr := d.Info(); ferr == nil {
				total += uint64(fi.Size())
			}
			return nil
		})
		s.OnDiskBytes = total
	}
	if m := db.Metrics(); m != nil {
		flat := make(map[string]float64)
		flattenStruct("", reflect.ValueOf(m), flat)
		if v := findMetric(flat, `(?i)wal.*(size|bytes|total)`); v > 0 {
			s.WALBytes = uint64(v)
		}
		if v := findMetric(flat, `(?i)l0.*files|(?i)level0.*files`); v > 0 {
			s.L0Files = int(v)
		}
		if v := findMetric(flat, `(?i)l0.*bytes|(?i)level0.*bytes`); v > 0 {
			s.L0Bytes = uint64(v)
		}
		if v := findMetric(flat, `(?i)compaction.*backlog|(?i)compaction.*pending.*bytes`); v > 0 {
			s.CompactionBacklog = uint64(v)
		}
	}
	return s
}

func findMetric(flat map[string]float64, pattern string) float64 {
	re := regexp.MustCompile(pattern)
	for k, v := range flat {
		if re.MatchString(k) || re.MatchString(strings.ReplaceAll(k, ".", "_")) {
			return v
		}
	}
	return 0
}

// flattenStruct walks a reflect.Value of a struct or pointer and fills out
// with numeric fields keyed by dotted path.
func flattenStruct(prefix string, v reflect.Value, out map[string]float64) {
	if !v.IsValid() {
		return
	}
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return
	}
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		f := v.Field(i)
		name := t.Field(i).Name
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		fv := f
		for fv.Kind() == reflect.Interface {
			if fv.IsNil() {
				fv = reflect.Value{}
				break
			}
			fv = fv.Elem()
		}
		switch fv.Kind() {
		case reflect.Struct:
			flattenStruct(key, fv, out)
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			out[key] = float64(fv.Int())
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			out[key] = float64(fv.Uint())
		case reflect.Float32, reflect.Float64:
			out[key] = fv.Float()
		default:
		}
	}
}
