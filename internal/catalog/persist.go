package catalog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"quilldb/internal/dberr"
)

// catalog.dat layout: a 16-byte fixed header (magic, format version,
// nextTableOID, nextIndexOID) followed by a JSON-encoded catalogDoc
// holding everything else. The header is fixed-width so a future format
// bump can grow the JSON body without disturbing the version check.
const (
	catalogMagic   = 0x51434154 // "QCAT"
	catalogVersion = 1
	headerBytes    = 16
)

func catalogPath(dataDir string) string {
	return filepath.Join(dataDir, "catalog.dat")
}

// catalogDoc is the JSON-serializable snapshot of everything the binary
// header doesn't carry, mirroring the teacher's own reach for
// encoding/json to persist catalog records.
type catalogDoc struct {
	Info   DatabaseInfo
	Tables []*Table
}

func (c *Catalog) persist() error {
	doc := catalogDoc{Info: c.info}
	for oid := uint32(1); oid < c.nextTableOID; oid++ {
		if t, ok := c.tables[oid]; ok {
			doc.Tables = append(doc.Tables, t)
		}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("catalog: marshaling catalog.dat: %w", err)
	}

	header := make([]byte, headerBytes)
	binary.LittleEndian.PutUint32(header[0:], catalogMagic)
	binary.LittleEndian.PutUint32(header[4:], catalogVersion)
	binary.LittleEndian.PutUint32(header[8:], c.nextTableOID)
	binary.LittleEndian.PutUint32(header[12:], c.nextIndexOID)

	tmp := c.path + ".tmp"
	out := append(header, body...)
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return &dberr.IOError{Op: "write", Path: c.path, Err: err}
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return &dberr.IOError{Op: "rename", Path: c.path, Err: err}
	}
	return nil
}

// load reads catalog.dat if it exists, returning loaded=false (and no
// error) if the file is absent, which Open treats as "create fresh".
func (c *Catalog) load() (bool, error) {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, &dberr.IOError{Op: "read", Path: c.path, Err: err}
	}
	if len(raw) < headerBytes {
		return false, fmt.Errorf("catalog: %q is truncated (smaller than its header)", c.path)
	}
	if binary.LittleEndian.Uint32(raw[0:]) != catalogMagic {
		return false, fmt.Errorf("catalog: %q is not a catalog file (bad magic)", c.path)
	}
	ver := binary.LittleEndian.Uint32(raw[4:])
	if ver != catalogVersion {
		return false, fmt.Errorf("catalog: %q has unsupported format version %d", c.path, ver)
	}
	nextTableOID := binary.LittleEndian.Uint32(raw[8:])
	nextIndexOID := binary.LittleEndian.Uint32(raw[12:])

	var doc catalogDoc
	if err := json.Unmarshal(raw[headerBytes:], &doc); err != nil {
		return false, fmt.Errorf("catalog: %q body is corrupt: %w", c.path, err)
	}

	c.info = doc.Info
	if c.info.CreatedAt.IsZero() {
		c.info.CreatedAt = time.Now()
	}
	c.nextTableOID = nextTableOID
	c.nextIndexOID = nextIndexOID
	c.tables = make(map[uint32]*Table, len(doc.Tables))
	c.byName = make(map[string]uint32, len(doc.Tables))
	for _, t := range doc.Tables {
		c.tables[t.OID] = t
		c.byName[strings.ToLower(t.Name)] = t.OID
	}
	return true, nil
}
