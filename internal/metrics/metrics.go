// Package metrics exposes Prometheus collectors for the room manager.
// Everything registers on the default registry; the router serves it
// at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RoomsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_rooms_created_total",
		Help: "Rooms created since start.",
	})

	RoomsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_rooms_deleted_total",
		Help: "Rooms deleted, explicitly or by the sweeper.",
	})

	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tripsync_active_rooms",
		Help: "Rooms currently registered.",
	})

	MembersJoined = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_members_joined_total",
		Help: "Members that joined any room.",
	})

	MembersLeft = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_members_left_total",
		Help: "Members that left, including evictions.",
	})

	MembersEvicted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_members_evicted_total",
		Help: "Members removed by the liveness sweeper.",
	})

	ActiveMembers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tripsync_active_members",
		Help: "Members currently connected across all rooms.",
	})

	FramesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_frames_sent_total",
		Help: "Event frames enqueued to member connections.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tripsync_frames_dropped_total",
		Help: "Event frames dropped on slow or dead connections.",
	})

	ChatMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsync_chat_messages_total",
		Help: "Chat messages fanned out, by sender kind.",
	}, []string{"sender"})

	AgentRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tripsync_agent_requests_total",
		Help: "Planner agent consultations, by outcome.",
	}, []string{"status"})
)
