package domain

import "time"

type BroadcastStatus string

const (
	BroadcastStatusScheduled  BroadcastStatus = "scheduled"
	BroadcastStatusProcessing BroadcastStatus = "processing"
	BroadcastStatusCompleted  BroadcastStatus = "completed"
	BroadcastStatusFailed     BroadcastStatus = "failed"
)

// Audience is the closed set of broadcast target segments. Stale or
// unrecognised values resolve to an empty audience, never an error.
type Audience string

const (
	AudienceAll            Audience = "all"
	AudienceSubscribers    Audience = "subscribers"
	AudienceNonSubscribers Audience = "non_subscribers"
	AudienceExpired        Audience = "expired"
	AudienceChannel        Audience = "channel"
	AudienceNewUsers       Audience = "new_users"
)

type MediaType string

const (
	MediaTypePhoto    MediaType = "photo"
	MediaTypeVideo    MediaType = "video"
	MediaTypeDocument MediaType = "document"
)

type Broadcast struct {
	ID            int64
	Text          string
	MediaType     MediaType
	MediaFileID   string
	Audience      Audience
	ChannelID     *int64
	NewerThanDays *int
	Status        BroadcastStatus
	ScheduledAt   time.Time
	SentCount     int
	ErrorCount    int
	StartedAt     *time.Time
	FinishedAt    *time.Time
	CreatedAt     time.Time
}
