package engine

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/chronos-foundation/chronos-base/finality"
	"github.com/chronos-foundation/chronos-base/hash"
	"github.com/chronos-foundation/chronos-base/inter/ident"
	"github.com/chronos-foundation/chronos-base/inter/idx"
	"github.com/chronos-foundation/chronos-base/kvdb"
	"github.com/chronos-foundation/chronos-base/kvdb/table"
	"github.com/chronos-foundation/chronos-base/reputation"
	"github.com/chronos-foundation/chronos-base/trustgraph"
)

var keyFinality = []byte("state")

// Store persists the engine's state in prefix tables over one kvdb store.
type Store struct {
	db kvdb.Store

	table struct {
		Profiles   kvdb.Store `table:"p"`
		Vouches    kvdb.Store `table:"v"`
		Finality   kvdb.Store `table:"f"`
		Heartbeats kvdb.Store `table:"h"`
	}
}

// NewStore over the given database.
func NewStore(db kvdb.Store) *Store {
	s := &Store{
		db: db,
	}
	table.MigrateTables(&s.table, db)
	return s
}

// Close leaves the tables and releases the underlying database.
func (s *Store) Close() error {
	table.MigrateTables(&s.table, nil)
	return s.db.Close()
}

/*
 * Profiles
 */

// SetProfile persists the identity's reputation profile.
func (s *Store) SetProfile(id ident.ID, p *reputation.Profile) error {
	buf, err := rlp.EncodeToBytes(p)
	if err != nil {
		return errors.Wrap(err, "failed to encode profile")
	}
	return errors.Wrap(s.table.Profiles.Put(id.Bytes(), buf), "failed to put profile")
}

// DelProfile removes the identity's persisted profile.
func (s *Store) DelProfile(id ident.ID) error {
	return errors.Wrap(s.table.Profiles.Delete(id.Bytes()), "failed to delete profile")
}

// ForEachProfile walks all persisted profiles.
func (s *Store) ForEachProfile(do func(id ident.ID, p *reputation.Profile)) error {
	it := s.table.Profiles.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		p := &reputation.Profile{}
		if err := rlp.DecodeBytes(it.Value(), p); err != nil {
			return errors.Wrap(err, "failed to decode profile")
		}
		do(ident.BytesToID(it.Key()), p)
	}
	return errors.Wrap(it.Error(), "failed to iterate profiles")
}

/*
 * Vouch edges
 */

type edgeRLP struct {
	Time uint64
}

func edgeKey(voucher, vouchee ident.ID) []byte {
	key := make([]byte, 0, 2*ident.Length)
	key = append(key, voucher.Bytes()...)
	key = append(key, vouchee.Bytes()...)
	return key
}

// SetEdge persists a vouch edge.
func (s *Store) SetEdge(e trustgraph.Edge) error {
	buf, err := rlp.EncodeToBytes(&edgeRLP{Time: e.Time})
	if err != nil {
		return errors.Wrap(err, "failed to encode vouch")
	}
	return errors.Wrap(s.table.Vouches.Put(edgeKey(e.Voucher, e.Vouchee), buf), "failed to put vouch")
}

// DelEdge removes a persisted vouch edge.
func (s *Store) DelEdge(voucher, vouchee ident.ID) error {
	return errors.Wrap(s.table.Vouches.Delete(edgeKey(voucher, vouchee)), "failed to delete vouch")
}

// DelEdgesOf removes every persisted edge touching the identity.
func (s *Store) DelEdgesOf(id ident.ID) error {
	it := s.table.Vouches.NewIterator(nil, nil)
	defer it.Release()

	var doomed [][]byte
	for it.Next() {
		key := it.Key()
		if len(key) != 2*ident.Length {
			continue
		}
		voucher := ident.BytesToID(key[:ident.Length])
		vouchee := ident.BytesToID(key[ident.Length:])
		if voucher == id || vouchee == id {
			doomed = append(doomed, append([]byte{}, key...))
		}
	}
	if err := it.Error(); err != nil {
		return errors.Wrap(err, "failed to iterate vouches")
	}

	for _, key := range doomed {
		if err := s.table.Vouches.Delete(key); err != nil {
			return errors.Wrap(err, "failed to delete vouch")
		}
	}
	return nil
}

// ForEachEdge walks all persisted vouch edges.
func (s *Store) ForEachEdge(do func(e trustgraph.Edge)) error {
	it := s.table.Vouches.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != 2*ident.Length {
			continue
		}
		var dec edgeRLP
		if err := rlp.DecodeBytes(it.Value(), &dec); err != nil {
			return errors.Wrap(err, "failed to decode vouch")
		}
		do(trustgraph.Edge{
			Voucher: ident.BytesToID(key[:ident.Length]),
			Vouchee: ident.BytesToID(key[ident.Length:]),
			Time:    dec.Time,
		})
	}
	return errors.Wrap(it.Error(), "failed to iterate vouches")
}

/*
 * Finality state
 */

type stateRLP struct {
	Depth   uint64
	Tip     hash.Hash
	TipTime uint64
}

// SetFinality persists the accepted finality state.
func (s *Store) SetFinality(st finality.State) error {
	buf, err := rlp.EncodeToBytes(&stateRLP{
		Depth:   uint64(st.Depth),
		Tip:     st.Tip,
		TipTime: uint64(st.TipTime),
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode finality state")
	}
	return errors.Wrap(s.table.Finality.Put(keyFinality, buf), "failed to put finality state")
}

// GetFinality reads the persisted finality state, false if none.
func (s *Store) GetFinality() (finality.State, bool, error) {
	buf, err := s.table.Finality.Get(keyFinality)
	if err != nil {
		return finality.State{}, false, errors.Wrap(err, "failed to get finality state")
	}
	if buf == nil {
		return finality.State{}, false, nil
	}
	var dec stateRLP
	if err := rlp.DecodeBytes(buf, &dec); err != nil {
		return finality.State{}, false, errors.Wrap(err, "failed to decode finality state")
	}
	return finality.State{
		Depth:   idx.Depth(dec.Depth),
		Tip:     dec.Tip,
		TipTime: int64(dec.TipTime),
	}, true, nil
}

/*
 * Heartbeat state
 */

type heartbeatRLP struct {
	Seq  uint64
	Time uint64
	Ref  uint64
}

// SetHeartbeat persists the identity's last accepted heartbeat state.
func (s *Store) SetHeartbeat(id ident.ID, hb heartbeatState) error {
	buf, err := rlp.EncodeToBytes(&heartbeatRLP{
		Seq:  uint64(hb.Seq),
		Time: uint64(hb.Time),
		Ref:  uint64(hb.FinalityRef),
	})
	if err != nil {
		return errors.Wrap(err, "failed to encode heartbeat state")
	}
	return errors.Wrap(s.table.Heartbeats.Put(id.Bytes(), buf), "failed to put heartbeat state")
}

// DelHeartbeat removes the identity's persisted heartbeat state.
func (s *Store) DelHeartbeat(id ident.ID) error {
	return errors.Wrap(s.table.Heartbeats.Delete(id.Bytes()), "failed to delete heartbeat state")
}

// ForEachHeartbeat walks all persisted heartbeat states.
func (s *Store) ForEachHeartbeat(do func(id ident.ID, hb heartbeatState)) error {
	it := s.table.Heartbeats.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		var dec heartbeatRLP
		if err := rlp.DecodeBytes(it.Value(), &dec); err != nil {
			return errors.Wrap(err, "failed to decode heartbeat state")
		}
		do(ident.BytesToID(it.Key()), heartbeatState{
			Seq:         idx.Seq(dec.Seq),
			Time:        int64(dec.Time),
			FinalityRef: idx.Depth(dec.Ref),
		})
	}
	return errors.Wrap(it.Error(), "failed to iterate heartbeat states")
}
