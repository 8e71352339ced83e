package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/identity"
	"github.com/tinylib/msgp/msgp"
)

var (
	ErrUnknownMessageType = errors.New("protocol: unknown message type")
	ErrMalformed          = errors.New("protocol: malformed payload")
)

// Pool of buffers to avoid allocation and ensure thread safety
var bufferPool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

func encode(fn func(w *msgp.Writer) error) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	writer := msgp.NewWriter(buf)
	if err := fn(writer); err != nil {
		return nil, err
	}
	if err := writer.Flush(); err != nil {
		return nil, err
	}

	// Create a copy to avoid aliasing the pooled buffer
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

type payload interface {
	msgp.Encodable
}

func expectArray(r *msgp.Reader, want uint32, name string) error {
	n, err := r.ReadArrayHeader()
	if err != nil {
		return err
	}
	if n != want {
		return fmt.Errorf("%w: %s has %d fields, want %d", ErrMalformed, name, n, want)
	}
	return nil
}

// decodeBody decodes the envelope body into v.
func decodeBody(r *msgp.Reader, kind Kind, v msgp.Decodable) error {
	if err := v.DecodeMsg(r); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, kind, err)
	}
	return nil
}

type tagged interface {
	Kind() Kind
	payload
}

// Marshal serializes an operation or message as a [kind, body] envelope.
func Marshal(v tagged) ([]byte, error) {
	if v == nil {
		return nil, ErrUnknownMessageType
	}
	return encode(func(w *msgp.Writer) error {
		if err := w.WriteArrayHeader(2); err != nil {
			return err
		}
		if err := w.WriteString(string(v.Kind())); err != nil {
			return err
		}
		return v.EncodeMsg(w)
	})
}

func readEnvelope(data []byte) (*msgp.Reader, Kind, error) {
	reader := msgp.NewReader(bytes.NewReader(data))
	if err := expectArray(reader, 2, "envelope"); err != nil {
		return nil, "", err
	}
	kind, err := reader.ReadString()
	if err != nil {
		return nil, "", err
	}
	return reader, Kind(kind), nil
}

// UnmarshalOperation decodes an operation envelope.
func UnmarshalOperation(data []byte) (Operation, error) {
	reader, kind, err := readEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindJoin:
		var op Join
		err := decodeBody(reader, kind, &op)
		return op, err
	case KindLeave:
		var op Leave
		err := decodeBody(reader, kind, &op)
		return op, err
	case KindAskQuestion:
		var op AskQuestion
		err := decodeBody(reader, kind, &op)
		return op, err
	case KindSubmitAnswer:
		var op SubmitAnswer
		err := decodeBody(reader, kind, &op)
		return op, err
	case KindProcessRound:
		var op ProcessRound
		err := decodeBody(reader, kind, &op)
		return op, err
	case KindEnterLobby:
		var op EnterLobby
		err := decodeBody(reader, kind, &op)
		return op, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, kind)
	}
}

// UnmarshalMessage decodes a message envelope.
func UnmarshalMessage(data []byte) (Message, error) {
	reader, kind, err := readEnvelope(data)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindRequestJoinLobby:
		var msg RequestJoinLobby
		err := decodeBody(reader, kind, &msg)
		return msg, err
	case KindInitializeGame:
		var msg InitializeGame
		err := decodeBody(reader, kind, &msg)
		return msg, err
	case KindGameResults:
		var msg GameResults
		err := decodeBody(reader, kind, &msg)
		return msg, err
	case KindDistributePrize:
		var msg DistributePrize
		err := decodeBody(reader, kind, &msg)
		return msg, err
	case KindCredit:
		var msg Credit
		err := decodeBody(reader, kind, &msg)
		return msg, err
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, kind)
	}
}

// SignedOperation is an operation submitted from outside the ledger. Nonce
// must equal the number of operations the signer already executed on Chain.
type SignedOperation struct {
	Chain     chainid.ID        `json:"chain"`
	Signer    identity.PlayerID `json:"signer"`
	Nonce     uint64            `json:"nonce"`
	Payload   []byte            `json:"payload"`
	Signature []byte            `json:"signature"`
}

// SigningBytes is what the signer signs: the chain, signer, nonce and payload.
func (s SignedOperation) SigningBytes() []byte {
	out, _ := encode(func(w *msgp.Writer) error {
		if err := w.WriteArrayHeader(4); err != nil {
			return err
		}
		if err := w.WriteString(string(s.Chain)); err != nil {
			return err
		}
		if err := w.WriteString(string(s.Signer)); err != nil {
			return err
		}
		if err := w.WriteUint64(s.Nonce); err != nil {
			return err
		}
		return w.WriteBytes(s.Payload)
	})
	return out
}

// Sign builds a SignedOperation for op.
func Sign(signer *identity.Signer, chain chainid.ID, nonce uint64, op Operation) (SignedOperation, error) {
	body, err := Marshal(op)
	if err != nil {
		return SignedOperation{}, err
	}
	s := SignedOperation{Chain: chain, Signer: signer.ID(), Nonce: nonce, Payload: body}
	s.Signature = signer.Sign(s.SigningBytes())
	return s, nil
}

// Verify checks the signature and decodes the operation.
func (s SignedOperation) Verify() (Operation, error) {
	if err := identity.Verify(s.Signer, s.SigningBytes(), s.Signature); err != nil {
		return nil, err
	}
	return UnmarshalOperation(s.Payload)
}

// MarshalSigned serializes a SignedOperation for transport.
func MarshalSigned(s SignedOperation) ([]byte, error) {
	return encode(func(w *msgp.Writer) error {
		if err := w.WriteArrayHeader(5); err != nil {
			return err
		}
		if err := w.WriteString(string(s.Chain)); err != nil {
			return err
		}
		if err := w.WriteString(string(s.Signer)); err != nil {
			return err
		}
		if err := w.WriteUint64(s.Nonce); err != nil {
			return err
		}
		if err := w.WriteBytes(s.Payload); err != nil {
			return err
		}
		return w.WriteBytes(s.Signature)
	})
}

// UnmarshalSigned decodes a SignedOperation.
func UnmarshalSigned(data []byte) (SignedOperation, error) {
	var s SignedOperation
	reader := msgp.NewReader(bytes.NewReader(data))
	if err := expectArray(reader, 5, "signed_operation"); err != nil {
		return s, err
	}
	chain, err := reader.ReadString()
	if err != nil {
		return s, err
	}
	signer, err := reader.ReadString()
	if err != nil {
		return s, err
	}
	s.Chain, s.Signer = chainid.ID(chain), identity.PlayerID(signer)
	if s.Nonce, err = reader.ReadUint64(); err != nil {
		return s, err
	}
	if s.Payload, err = reader.ReadBytes(nil); err != nil {
		return s, err
	}
	s.Signature, err = reader.ReadBytes(nil)
	return s, err
}
