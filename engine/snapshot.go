package engine

import (
	"os"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/chronos-foundation/chronos-base/common/bigendian"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/reputation"
)

// snapshotVersion of the on-disk format. Bumped on any layout change; older
// files are refused on load.
const snapshotVersion uint32 = 1

var (
	ErrSnapshotVersion = errors.New("snapshot format version is not supported")
	ErrSnapshotCorrupt = errors.New("snapshot is truncated or corrupt")
)

// SaveSnapshot writes all reputation profiles to path as a versioned binary
// snapshot. The file appears atomically: it is written to a temp file and
// renamed over the target, so a crash never leaves a partial snapshot.
//
// Layout: version (4 bytes BE), identity count (4 bytes BE), then per
// identity the 32-byte key, a 4-byte BE record length and the RLP profile.
func (e *Engine) SaveSnapshot(path string) error {
	ids := e.rep.IDs()

	buf := make([]byte, 0, 1024)
	buf = append(buf, bigendian.Uint32ToBytes(snapshotVersion)...)
	buf = append(buf, bigendian.Uint32ToBytes(uint32(len(ids)))...)

	written := 0
	for _, id := range ids {
		p, ok := e.rep.Profile(id)
		if !ok {
			continue
		}
		record, err := rlp.EncodeToBytes(p)
		if err != nil {
			return errors.Wrap(err, "failed to encode profile")
		}
		buf = append(buf, id.Bytes()...)
		buf = append(buf, bigendian.Uint32ToBytes(uint32(len(record)))...)
		buf = append(buf, record...)
		written++
	}
	// the count header covers exactly the records behind it
	copy(buf[4:8], bigendian.Uint32ToBytes(uint32(written)))

	if err := renameio.WriteFile(path, buf, 0o644); err != nil {
		return errors.Wrap(err, "failed to write snapshot")
	}
	e.logger.Info("snapshot saved", zap.Int("identities", written))
	return nil
}

// LoadSnapshot restores reputation profiles from a snapshot written by
// SaveSnapshot, replacing any in-memory profiles for the contained
// identities. Unreadable or version-mismatched snapshots fail loudly; the
// engine state is only modified once the whole file has parsed.
func (e *Engine) LoadSnapshot(path string) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "failed to read snapshot")
	}
	if len(buf) < 8 {
		return ErrSnapshotCorrupt
	}

	version := bigendian.BytesToUint32(buf[:4])
	if version != snapshotVersion {
		return errors.Wrapf(ErrSnapshotVersion, "got version %d, want %d", version, snapshotVersion)
	}
	count := bigendian.BytesToUint32(buf[4:8])
	buf = buf[8:]

	type entry struct {
		id ident.ID
		p  *reputation.Profile
	}
	// the count header is untrusted; a corrupt file must fail, not OOM
	entries := make([]entry, 0, min(count, 1024))

	for i := uint32(0); i < count; i++ {
		if len(buf) < ident.Length+4 {
			return ErrSnapshotCorrupt
		}
		id := ident.BytesToID(buf[:ident.Length])
		size := bigendian.BytesToUint32(buf[ident.Length : ident.Length+4])
		buf = buf[ident.Length+4:]

		if uint64(len(buf)) < uint64(size) {
			return ErrSnapshotCorrupt
		}
		p := &reputation.Profile{}
		if err := rlp.DecodeBytes(buf[:size], p); err != nil {
			return errors.Wrap(err, "failed to decode profile")
		}
		buf = buf[size:]

		entries = append(entries, entry{id: id, p: p})
	}
	if len(buf) != 0 {
		return ErrSnapshotCorrupt
	}

	for _, en := range entries {
		e.rep.Restore(en.id, en.p)
		if e.store != nil {
			if err := e.store.SetProfile(en.id, en.p); err != nil {
				return err
			}
		}
	}
	e.logger.Info("snapshot loaded", zap.Int("identities", len(entries)))
	return nil
}
