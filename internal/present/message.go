// Package present delivers walk results to UI panels and receives their requests.
package present

import (
	"encoding/json"

	"github.com/dgallion1/layertree/internal/walker"
)

// Outbound message types.
const (
	TypeProcessingStarted  = "processing-started"
	TypeSelectionData      = "selection-data"
	TypeProcessingComplete = "processing-complete"
)

// Inbound message types.
const (
	TypeRefreshSelection = "refresh-selection"
	TypeClose            = "close"
)

// NoSelectionText is shown in both listings when nothing is selected.
const NoSelectionText = "No layers selected. Please select one or more layers."

// ErrorPrefix precedes the failure message in degraded results.
const ErrorPrefix = "Error processing selection: "

// Message is one frame sent to a panel.
type Message struct {
	Type      string `json:"type"`
	RunID     string `json:"runId,omitempty"`
	ClearData bool   `json:"clearData,omitempty"`
	*SelectionData
}

// SelectionData is the payload of a selection-data message.
type SelectionData struct {
	Text       string `json:"text"`
	SimpleText string `json:"simpleText"`
	JSON       string `json:"json"`
}

func ProcessingStarted(runID string) Message {
	return Message{Type: TypeProcessingStarted, RunID: runID, ClearData: true}
}

func ProcessingComplete(runID string) Message {
	return Message{Type: TypeProcessingComplete, RunID: runID}
}

func SelectionDataMessage(runID string, data SelectionData) Message {
	return Message{Type: TypeSelectionData, RunID: runID, SelectionData: &data}
}

// NoSelection is the fixed payload for an empty selection.
func NoSelection() SelectionData {
	return SelectionData{
		Text:       NoSelectionText,
		SimpleText: NoSelectionText,
		JSON:       "[]",
	}
}

// FromResult packages a walk result.
func FromResult(res *walker.Result) (SelectionData, error) {
	js, err := res.JSON()
	if err != nil {
		return SelectionData{}, err
	}
	return SelectionData{
		Text:       res.Text(),
		SimpleText: res.SimpleText(),
		JSON:       js,
	}, nil
}

// Failure builds the degraded payload for a failed walk.
func Failure(msg string) SelectionData {
	js, _ := json.Marshal(map[string]string{"error": msg})
	return SelectionData{
		Text:       ErrorPrefix + msg,
		SimpleText: ErrorPrefix + msg,
		JSON:       string(js),
	}
}

// Inbound is a request sent by a panel.
type Inbound struct {
	Type string `json:"type"`
	walker.Patch
}

// Publisher delivers outbound messages.
type Publisher interface {
	Publish(Message)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(Message)

func (f PublisherFunc) Publish(m Message) { f(m) }

// Marshal serializes a message for the wire.
func Marshal(m Message) ([]byte, error) {
	return json.Marshal(m)
}
