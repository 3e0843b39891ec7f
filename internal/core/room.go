package core

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"tripsync/internal/domain"
	"tripsync/internal/metrics"
)

type member struct {
	meta *domain.Member
	conn Conn
}

// Room is a threadsafe in-memory session. All membership state changes
// and the fan-out they trigger happen under one mutex, so every member
// observes events in the same order.
//
// Send failures are collected under the lock and turned into ordinary
// leaves after it is released; see drain.
type Room struct {
	meta  domain.Room
	newID func() domain.MemberID
	now   func() time.Time

	mu         sync.Mutex
	members    map[domain.MemberID]*member
	joinSeq    int
	emptySince time.Time
}

// NewRoom wires a room around its metadata. newID must yield
// process-unique member ids.
func NewRoom(meta domain.Room, newID func() domain.MemberID) *Room {
	return &Room{
		meta:       meta,
		newID:      newID,
		now:        time.Now,
		members:    make(map[domain.MemberID]*member),
		emptySince: meta.CreatedAt,
	}
}

func (r *Room) Code() domain.RoomCode { return r.meta.Code }
func (r *Room) Name() string          { return r.meta.Name }
func (r *Room) CreatedAt() time.Time  { return r.meta.CreatedAt }

func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// EmptySince reports when the room last became (or was created) empty.
// Zero while anyone is inside.
func (r *Room) EmptySince() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.emptySince
}

// Member returns a copy of one member's meta.
func (r *Room) Member(id domain.MemberID) (domain.Member, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[id]
	if !ok {
		return domain.Member{}, false
	}
	return *m.meta, true
}

// Join adds a member, announces it to everyone else and hands the
// joiner a room_state snapshot as the first frame on its connection.
// The first member in becomes host.
func (r *Room) Join(conn Conn, nickname string) domain.Member {
	nickname = domain.SanitizeNickname(nickname)

	r.mu.Lock()
	now := r.now()
	r.joinSeq++
	m := &domain.Member{
		ID:            r.newID(),
		Nickname:      nickname,
		Color:         domain.MemberColor(r.joinSeq - 1),
		Seq:           r.joinSeq,
		IsHost:        len(r.members) == 0,
		JoinedAt:      now,
		LastHeartbeat: now,
	}
	r.members[m.ID] = &member{meta: m, conn: conn}
	r.emptySince = time.Time{}

	failed := r.broadcastLocked(MemberJoined{
		Type:        EventMemberJoined,
		Member:      memberInfo(m),
		MemberCount: len(r.members),
	}, m.ID)

	state := r.snapshotLocked()
	state.YourID = m.ID
	state.YourColor = m.Color
	frame, err := Encode(state)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Msg("room_state marshal")
	} else if conn.TrySend(frame) != nil {
		failed = append(failed, m.ID)
	} else {
		metrics.FramesSent.Inc()
	}
	joined := *m
	r.mu.Unlock()

	metrics.MembersJoined.Inc()
	metrics.ActiveMembers.Inc()
	log.Info().Str("module", "core.room").Str("room", string(r.meta.Code)).
		Str("member", string(joined.ID)).Str("nickname", joined.Nickname).Bool("host", joined.IsHost).
		Msg("member joined")

	r.drain(failed)
	return joined
}

// Leave removes a member, announces the departure and, when the host
// left, promotes the longest-present member. The member's connection
// is assumed already closing or closed.
func (r *Room) Leave(id domain.MemberID) {
	r.mu.Lock()
	failed := r.leaveLocked(id)
	r.mu.Unlock()
	r.drain(failed)
}

func (r *Room) leaveLocked(id domain.MemberID) []domain.MemberID {
	m, ok := r.members[id]
	if !ok {
		return nil
	}
	delete(r.members, id)

	failed := r.broadcastLocked(MemberLeft{
		Type:        EventMemberLeft,
		MemberID:    id,
		Nickname:    m.meta.Nickname,
		MemberCount: len(r.members),
	}, "")

	if m.meta.IsHost {
		if next := r.oldestLocked(); next != nil {
			next.meta.IsHost = true
			failed = append(failed, r.broadcastLocked(HostChanged{
				Type:            EventHostChanged,
				NewHostID:       next.meta.ID,
				NewHostNickname: next.meta.Nickname,
			}, "")...)
			log.Info().Str("module", "core.room").Str("room", string(r.meta.Code)).
				Str("member", string(next.meta.ID)).Msg("host changed")
		}
	}
	if len(r.members) == 0 {
		r.emptySince = r.now()
	}

	metrics.MembersLeft.Inc()
	metrics.ActiveMembers.Dec()
	log.Info().Str("module", "core.room").Str("room", string(r.meta.Code)).
		Str("member", string(id)).Str("nickname", m.meta.Nickname).Msg("member left")
	return failed
}

// oldestLocked finds the remaining member with the lowest join
// sequence, the next host.
func (r *Room) oldestLocked() *member {
	var next *member
	for _, m := range r.members {
		if next == nil || m.meta.Seq < next.meta.Seq {
			next = m
		}
	}
	return next
}

// UpdateLocation stores a member's position and fans it out to the
// others. Counts as a heartbeat. Unknown ids are ignored.
func (r *Room) UpdateLocation(id domain.MemberID, lat, lon float64, heading, accuracy *float64) {
	r.mu.Lock()
	m, ok := r.members[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	now := r.now()
	m.meta.Location = &domain.Location{
		Lat:       lat,
		Lon:       lon,
		Heading:   heading,
		Accuracy:  accuracy,
		UpdatedAt: now,
	}
	m.meta.LastHeartbeat = now
	failed := r.broadcastLocked(LocationUpdate{
		Type:     EventLocationUpdate,
		MemberID: id,
		Location: locationInfo(m.meta.Location),
	}, id)
	r.mu.Unlock()
	r.drain(failed)
}

// Heartbeat refreshes a member's liveness. Unknown ids are ignored.
func (r *Room) Heartbeat(id domain.MemberID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[id]; ok {
		m.meta.LastHeartbeat = r.now()
	}
}

// PostChat fans a chat message out to every member, sender included.
func (r *Room) PostChat(msg ChatPayload) {
	r.mu.Lock()
	failed := r.broadcastLocked(NewChatEvent(msg), "")
	r.mu.Unlock()
	r.drain(failed)
}

// SetAgentTyping toggles the assistant's typing indicator for everyone.
func (r *Room) SetAgentTyping(typing bool) {
	r.mu.Lock()
	failed := r.broadcastLocked(NewAgentTyping(typing), "")
	r.mu.Unlock()
	r.drain(failed)
}

// Snapshot returns the current room_state without addressee fields.
func (r *Room) Snapshot() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (r *Room) snapshotLocked() RoomState {
	metas := make([]*domain.Member, 0, len(r.members))
	for _, m := range r.members {
		metas = append(metas, m.meta)
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Seq < metas[j].Seq })

	st := RoomState{
		Type:        EventRoomState,
		Code:        r.meta.Code,
		Name:        r.meta.Name,
		CreatedAt:   r.meta.CreatedAt.UnixMilli(),
		Members:     make([]MemberInfo, 0, len(metas)),
		MemberCount: len(metas),
	}
	for _, m := range metas {
		st.Members = append(st.Members, memberInfo(m))
	}
	return st
}

// EvictStale removes every member whose last heartbeat is older than
// cutoff, running the full leave path for each so the survivors see
// member_left and host_changed as usual. Returns the evicted metas.
func (r *Room) EvictStale(cutoff time.Time) []domain.Member {
	r.mu.Lock()
	var evicted []domain.Member
	var failed []domain.MemberID
	for id, m := range r.members {
		if !m.meta.LastHeartbeat.Before(cutoff) {
			continue
		}
		evicted = append(evicted, *m.meta)
		m.conn.Close()
		failed = append(failed, r.leaveLocked(id)...)
	}
	r.mu.Unlock()
	r.drain(failed)
	return evicted
}

// broadcastLocked fans one event out to every member except exclude
// and reports the ids whose send failed. Callers must hold r.mu and
// route the returned ids through drain after releasing it.
func (r *Room) broadcastLocked(evt Event, exclude domain.MemberID) []domain.MemberID {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("module", "core.room").Msg("broadcast marshal")
		return nil
	}
	var failed []domain.MemberID
	sent := 0
	for id, m := range r.members {
		if id == exclude {
			continue
		}
		if err := m.conn.TrySend(Frame(data)); err != nil {
			failed = append(failed, id)
			metrics.FramesDropped.Inc()
			continue
		}
		sent++
		metrics.FramesSent.Inc()
	}
	if len(failed) > 0 {
		log.Debug().Str("module", "core.room").Str("room", string(r.meta.Code)).
			Int("sent_to", sent).Int("dropped", len(failed)).Msg("broadcast result")
	}
	return failed
}

// drain closes and removes members whose sends failed. Removing them
// broadcasts member_left, which can fail for further members; those
// are queued too, so the loop runs to a fixed point.
func (r *Room) drain(failed []domain.MemberID) {
	queue := failed
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		r.mu.Lock()
		m, ok := r.members[id]
		if !ok {
			r.mu.Unlock()
			continue
		}
		m.conn.Close()
		queue = append(queue, r.leaveLocked(id)...)
		r.mu.Unlock()
	}
}
