package txplan

import (
	"encoding/json"
	"fmt"

	"github.com/alphabill-org/txplanner/action"
	"github.com/fxamacker/cbor/v2"
)

// ApplicationCbor is the content type of CBOR encoded plans.
const ApplicationCbor = "application/cbor"

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	if encMode, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(fmt.Errorf("creating cbor encoder: %w", err))
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic(fmt.Errorf("creating cbor decoder: %w", err))
	}
}

type (
	actionCBOR struct {
		_    struct{} `cbor:",toarray"`
		Kind action.Kind
		Body cbor.RawMessage
	}

	planCBOR struct {
		_             struct{} `cbor:",toarray"`
		Actions       []actionCBOR
		Params        TransactionParameters
		Memo          *MemoPlan
		DetectionData *DetectionDataPlan
	}

	actionJSON struct {
		Kind action.Kind     `json:"kind"`
		Body json.RawMessage `json:"body"`
	}

	planJSON struct {
		Actions       []actionJSON          `json:"actions"`
		Params        TransactionParameters `json:"params"`
		Memo          *MemoPlan             `json:"memo,omitempty"`
		DetectionData *DetectionDataPlan    `json:"detectionData,omitempty"`
	}
)

func (tp *TransactionPlan) MarshalCBOR() ([]byte, error) {
	return tp.encodeCBOR(true)
}

func (tp *TransactionPlan) encodeCBOR(withDetectionData bool) ([]byte, error) {
	p := planCBOR{
		Actions: make([]actionCBOR, 0, len(tp.Actions)),
		Params:  tp.Params,
		Memo:    tp.Memo,
	}
	if withDetectionData {
		p.DetectionData = tp.DetectionData
	}
	for i, a := range tp.Actions {
		body, err := encMode.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encoding action %d (%s): %w", i, a.Kind(), err)
		}
		p.Actions = append(p.Actions, actionCBOR{Kind: a.Kind(), Body: body})
	}
	return encMode.Marshal(p)
}

func (tp *TransactionPlan) UnmarshalCBOR(data []byte) error {
	var p planCBOR
	if err := decMode.Unmarshal(data, &p); err != nil {
		return err
	}
	actions := make([]action.Plan, 0, len(p.Actions))
	for i, a := range p.Actions {
		ap, err := action.New(a.Kind)
		if err != nil {
			return fmt.Errorf("decoding action %d: %w", i, err)
		}
		if err := decMode.Unmarshal(a.Body, ap); err != nil {
			return fmt.Errorf("decoding action %d (%s): %w", i, a.Kind, err)
		}
		actions = append(actions, ap)
	}
	*tp = TransactionPlan{
		Actions:       actions,
		Params:        p.Params,
		Memo:          p.Memo,
		DetectionData: p.DetectionData,
	}
	return nil
}

func (tp *TransactionPlan) MarshalJSON() ([]byte, error) {
	p := planJSON{
		Actions:       make([]actionJSON, 0, len(tp.Actions)),
		Params:        tp.Params,
		Memo:          tp.Memo,
		DetectionData: tp.DetectionData,
	}
	for i, a := range tp.Actions {
		body, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encoding action %d (%s): %w", i, a.Kind(), err)
		}
		p.Actions = append(p.Actions, actionJSON{Kind: a.Kind(), Body: body})
	}
	return json.Marshal(p)
}

func (tp *TransactionPlan) UnmarshalJSON(data []byte) error {
	var p planJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	actions := make([]action.Plan, 0, len(p.Actions))
	for i, a := range p.Actions {
		ap, err := action.New(a.Kind)
		if err != nil {
			return fmt.Errorf("decoding action %d: %w", i, err)
		}
		if err := json.Unmarshal(a.Body, ap); err != nil {
			return fmt.Errorf("decoding action %d (%s): %w", i, a.Kind, err)
		}
		actions = append(actions, ap)
	}
	*tp = TransactionPlan{
		Actions:       actions,
		Params:        p.Params,
		Memo:          p.Memo,
		DetectionData: p.DetectionData,
	}
	return nil
}

// Encode returns the canonical CBOR encoding of the plan.
func Encode(tp *TransactionPlan) ([]byte, error) {
	return tp.MarshalCBOR()
}

// Decode decodes a CBOR encoded plan.
func Decode(data []byte) (*TransactionPlan, error) {
	tp := &TransactionPlan{}
	if err := tp.UnmarshalCBOR(data); err != nil {
		return nil, fmt.Errorf("decoding transaction plan: %w", err)
	}
	return tp, nil
}
