// Package domain holds the closed enumerations of the leasing pipeline.
// These sets are fixed; persistence stores their string values directly.
package domain

// Source is the acquisition channel that produced a lead.
type Source string

const (
	SourceFacebookAds Source = "facebook_ads"
	SourceGoogleAds   Source = "google_ads"
	SourceWebsite     Source = "website"
	SourcePhone       Source = "phone"
	SourceReferral    Source = "referral"
)

// Status is a lead's position in the leasing funnel. The funnel is ordered
// new → contacted → qualified → touring → application → lease → move_in,
// with lost as a parallel terminal reachable from any status. Transitions
// are deliberately unrestricted; callers own domain-level sequencing.
type Status string

const (
	StatusNew         Status = "new"
	StatusContacted   Status = "contacted"
	StatusQualified   Status = "qualified"
	StatusTouring     Status = "touring"
	StatusApplication Status = "application"
	StatusLease       Status = "lease"
	StatusMoveIn      Status = "move_in"
	StatusLost        Status = "lost"
)

// ActivityType classifies an entry in a lead's activity ledger.
type ActivityType string

const (
	ActivityCall          ActivityType = "call"
	ActivitySMS           ActivityType = "sms"
	ActivityEmail         ActivityType = "email"
	ActivityNote          ActivityType = "note"
	ActivityStatusChange  ActivityType = "status_change"
	ActivityTourScheduled ActivityType = "tour_scheduled"
)

var knownSources = map[Source]struct{}{
	SourceFacebookAds: {},
	SourceGoogleAds:   {},
	SourceWebsite:     {},
	SourcePhone:       {},
	SourceReferral:    {},
}

var knownStatuses = map[Status]struct{}{
	StatusNew:         {},
	StatusContacted:   {},
	StatusQualified:   {},
	StatusTouring:     {},
	StatusApplication: {},
	StatusLease:       {},
	StatusMoveIn:      {},
	StatusLost:        {},
}

var knownActivityTypes = map[ActivityType]struct{}{
	ActivityCall:          {},
	ActivitySMS:           {},
	ActivityEmail:         {},
	ActivityNote:          {},
	ActivityStatusChange:  {},
	ActivityTourScheduled: {},
}

// AllStatuses lists every pipeline status in funnel order, lost last.
// Reporting iterates this to produce zero-filled per-status counts.
func AllStatuses() []Status {
	return []Status{
		StatusNew,
		StatusContacted,
		StatusQualified,
		StatusTouring,
		StatusApplication,
		StatusLease,
		StatusMoveIn,
		StatusLost,
	}
}

// AllSources lists every acquisition channel.
func AllSources() []Source {
	return []Source{
		SourceFacebookAds,
		SourceGoogleAds,
		SourceWebsite,
		SourcePhone,
		SourceReferral,
	}
}

// IsKnownSource reports whether the value belongs to the closed source set.
func IsKnownSource(s Source) bool {
	_, ok := knownSources[s]
	return ok
}

// IsKnownStatus reports whether the value belongs to the closed status set.
func IsKnownStatus(s Status) bool {
	_, ok := knownStatuses[s]
	return ok
}

// IsKnownActivityType reports whether the value belongs to the closed
// activity type set.
func IsKnownActivityType(t ActivityType) bool {
	_, ok := knownActivityTypes[t]
	return ok
}

// IsConverted reports whether a status counts toward the conversion rate.
func IsConverted(s Status) bool {
	return s == StatusLease || s == StatusMoveIn
}

// FunnelRank orders statuses along the funnel for reporting. lost ranks
// below new so that a lost lead never outranks an active one.
func FunnelRank(s Status) int {
	switch s {
	case StatusLost:
		return -1
	case StatusNew:
		return 0
	case StatusContacted:
		return 1
	case StatusQualified:
		return 2
	case StatusTouring:
		return 3
	case StatusApplication:
		return 4
	case StatusLease:
		return 5
	case StatusMoveIn:
		return 6
	default:
		return -1
	}
}
