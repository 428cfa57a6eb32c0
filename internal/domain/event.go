package domain

const (
	EventNameSessionCreated    = "session.created"
	EventNameSessionStarted    = "session.started"
	EventNameSessionFinished   = "session.finished"
	EventNameParticipantJoined = "participant.joined"
	EventNameAnswerSubmitted   = "answer.submitted"
)

type (
	EventSessionCreated struct {
		Session Session
	}

	EventSessionStarted struct {
		Session Session
	}

	// EventSessionFinished carries the final participant records so handlers
	// can archive results without reading the store again.
	EventSessionFinished struct {
		Session      Session
		Participants []Participant
	}

	EventParticipantJoined struct {
		Participant Participant
	}

	EventAnswerSubmitted struct {
		Participant  Participant
		QuestionType QuestionType
		Answer       Answer
		Timeout      bool
		// Completed is true only for the submission that completed the participant.
		Completed bool
	}
)

func (EventSessionCreated) Name() string    { return EventNameSessionCreated }
func (EventSessionStarted) Name() string    { return EventNameSessionStarted }
func (EventSessionFinished) Name() string   { return EventNameSessionFinished }
func (EventParticipantJoined) Name() string { return EventNameParticipantJoined }
func (EventAnswerSubmitted) Name() string   { return EventNameAnswerSubmitted }
