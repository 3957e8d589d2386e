package bolt

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

const manifestFile = "RESTORE"

// manifest records which restore produced a backup directory.
//
//	1: restore_id string
//	2: source     string
//	3: started    varint, unix nanoseconds
type manifest struct {
	RestoreID string
	Source    string
	Started   time.Time
}

var errManifest = errors.New("malformed restore manifest")

func (m manifest) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.RestoreID)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.Source)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Started.UnixNano()))
	return b
}

func unmarshalManifest(b []byte) (manifest, error) {
	var m manifest
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return manifest{}, errors.Join(errManifest, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return manifest{}, errors.Join(errManifest, protowire.ParseError(n))
			}
			m.RestoreID = v
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return manifest{}, errors.Join(errManifest, protowire.ParseError(n))
			}
			m.Source = v
			b = b[n:]
		case num == 3 && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return manifest{}, errors.Join(errManifest, protowire.ParseError(n))
			}
			m.Started = time.Unix(0, int64(v))
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return manifest{}, errors.Join(errManifest, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	if m.RestoreID == "" {
		return manifest{}, errManifest
	}
	return m, nil
}

func writeManifest(dir string, m manifest) error {
	return os.WriteFile(filepath.Join(dir, manifestFile), m.marshal(), 0600)
}

func readManifest(dir string) (manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return manifest{}, err
	}
	return unmarshalManifest(data)
}

func removeManifest(dir string) {
	if err := os.Remove(filepath.Join(dir, manifestFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("removing restore manifest", "dir", dir, "err", err)
	}
}
