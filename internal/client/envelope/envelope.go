// Package envelope runs the client side of a document exchange: sign, then
// encrypt, then upload on the way out; fetch, decrypt, split, then verify on
// the way in.
//
// The envelope is opaque here. Its length comes from Encrypt, the split
// point between message and signature comes from Decrypt, and both are
// checked before use. Every engine buffer is acquired through an
// engine.Scope and released on every exit path.
package envelope

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/docseal/internal/common"
	"github.com/dmitrijs2005/docseal/internal/engine"
	"github.com/dmitrijs2005/docseal/internal/identity"
	"github.com/dmitrijs2005/docseal/internal/logging"
)

// Document is an envelope as the store returns it to its recipient.
type Document struct {
	ID       string
	FileName string
	SenderID string
	Envelope []byte
}

// Store is the remote document store, already bound to the caller's session.
type Store interface {
	Put(ctx context.Context, recipientID, fileName string, envelope []byte) (string, error)
	Get(ctx context.Context, documentID string) (*Document, error)
}

// Opened is the outcome of a fetch that reached a verdict.
type Opened struct {
	DocumentID string
	SenderID   string
	FileName   string
	Verdict    engine.Verdict
	// Message is the recovered document. It is nil unless Verdict is Valid.
	Message []byte
}

type Orchestrator struct {
	mu       sync.Mutex
	engine   engine.Engine
	params   []byte
	store    Store
	observer Observer
	logger   logging.Logger
}

type Option func(*Orchestrator)

func WithObserver(o Observer) Option {
	return func(or *Orchestrator) {
		or.observer = o
	}
}

func WithLogger(l logging.Logger) Option {
	return func(or *Orchestrator) {
		or.logger = l
	}
}

// New creates an orchestrator over e using the given public parameters.
func New(e engine.Engine, params []byte, store Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		engine: e,
		params: bytes.Clone(params),
		store:  store,
		logger: logging.Discard(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("module", "envelope")
	return o
}

func (o *Orchestrator) enter(s State) {
	if o.observer != nil {
		o.observer(s)
	}
}

// fail moves the pipeline to Error and returns err.
func (o *Orchestrator) fail(ctx context.Context, step string, err error) error {
	o.enter(Error)
	o.logger.Warn(ctx, "pipeline failed", "step", step, "error", err)
	return err
}

func engineErr(op string, err error) error {
	if errors.Is(err, common.ErrEngine) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %v", common.ErrEngine, op, err)
}

// Send signs message with the sender's private key, encrypts message and
// signature to recipient and uploads the envelope. Nothing is uploaded
// unless both engine steps succeeded with plausible lengths.
//
// recipient is canonicalised first, since the server files documents under
// the canonical address and the recipient's key is extracted for it.
func (o *Orchestrator) Send(ctx context.Context, senderKey []byte, recipient, fileName string, message []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", o.fail(ctx, "start", err)
	}

	recipient = identity.Normalize(recipient)
	if !identity.IsCanonical(recipient) {
		return "", o.fail(ctx, "start", common.NewValidationError("recipient is not a valid email"))
	}

	sealed, err := o.seal(ctx, senderKey, recipient, message)
	if err != nil {
		return "", err
	}

	if err := ctx.Err(); err != nil {
		return "", o.fail(ctx, "upload", err)
	}
	id, err := o.store.Put(ctx, recipient, UploadName(fileName, recipient), sealed)
	if err != nil {
		return "", o.fail(ctx, "upload", fmt.Errorf("upload: %w", err))
	}

	o.enter(Uploaded)
	o.logger.Info(ctx, "document sent", "document_id", id, "recipient", recipient, "size", len(sealed))
	return id, nil
}

func (o *Orchestrator) seal(ctx context.Context, senderKey []byte, recipient string, message []byte) ([]byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := engine.NewScope(o.engine)
	defer s.Close()

	o.enter(Signing)
	key, err := s.Load(senderKey)
	if err != nil {
		return nil, o.fail(ctx, "sign", engineErr("load key", err))
	}
	msg, err := s.Load(message)
	if err != nil {
		return nil, o.fail(ctx, "sign", engineErr("load message", err))
	}
	sigBuf, err := o.engine.Sign(key, msg)
	s.Track(sigBuf)
	if err != nil {
		return nil, o.fail(ctx, "sign", engineErr("sign", err))
	}
	sig, err := engine.CheckLen(sigBuf)
	if err != nil {
		return nil, o.fail(ctx, "sign", fmt.Errorf("sign: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, "encrypt", err)
	}

	o.enter(Encrypting)
	combined := make([]byte, 0, len(message)+len(sig))
	combined = append(combined, message...)
	combined = append(combined, sig...)
	defer common.WipeByteArray(combined)

	params, err := s.Load(o.params)
	if err != nil {
		return nil, o.fail(ctx, "encrypt", engineErr("load params", err))
	}
	id, err := s.Load([]byte(recipient))
	if err != nil {
		return nil, o.fail(ctx, "encrypt", engineErr("load identity", err))
	}
	plain, err := s.Load(combined)
	if err != nil {
		return nil, o.fail(ctx, "encrypt", engineErr("load plaintext", err))
	}
	envBuf, err := o.engine.Encrypt(params, id, plain)
	s.Track(envBuf)
	if err != nil {
		return nil, o.fail(ctx, "encrypt", engineErr("encrypt", err))
	}
	env, err := engine.CheckLen(envBuf)
	if err != nil {
		return nil, o.fail(ctx, "encrypt", fmt.Errorf("encrypt: %w", err))
	}

	return bytes.Clone(env), nil
}

// Open fetches a document addressed to the caller, decrypts it with the
// caller's private key and verifies the sender's signature.
//
// A signature that does not verify returns an *Opened with Verdict Invalid
// and no message, together with common.ErrSignatureInvalid. Engine failures
// return an error matching common.ErrEngine and no *Opened.
func (o *Orchestrator) Open(ctx context.Context, recipientKey []byte, documentID string) (*Opened, error) {
	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, "start", err)
	}

	o.enter(Fetching)
	doc, err := o.store.Get(ctx, documentID)
	if err != nil {
		return nil, o.fail(ctx, "fetch", fmt.Errorf("fetch: %w", err))
	}
	if len(doc.Envelope) == 0 {
		return nil, o.fail(ctx, "fetch", fmt.Errorf("fetch: %w: empty envelope", common.ErrCorruptEnvelope))
	}

	if err := ctx.Err(); err != nil {
		return nil, o.fail(ctx, "decrypt", err)
	}

	verdict, message, err := o.unseal(ctx, recipientKey, doc)
	if err != nil {
		return nil, err
	}

	out := &Opened{
		DocumentID: doc.ID,
		SenderID:   doc.SenderID,
		FileName:   doc.FileName,
		Verdict:    verdict,
	}
	if verdict == engine.Invalid {
		o.enter(Invalid)
		o.logger.Warn(ctx, "signature verification failed", "document_id", doc.ID, "sender", doc.SenderID)
		return out, common.ErrSignatureInvalid
	}

	out.Message = message
	o.enter(Valid)
	o.logger.Info(ctx, "document verified", "document_id", doc.ID, "sender", doc.SenderID)
	return out, nil
}

func (o *Orchestrator) unseal(ctx context.Context, recipientKey []byte, doc *Document) (engine.Verdict, []byte, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := engine.NewScope(o.engine)
	defer s.Close()

	o.enter(Decrypting)
	key, err := s.Load(recipientKey)
	if err != nil {
		return 0, nil, o.fail(ctx, "decrypt", engineErr("load key", err))
	}
	env, err := s.Load(doc.Envelope)
	if err != nil {
		return 0, nil, o.fail(ctx, "decrypt", engineErr("load envelope", err))
	}
	plainBuf, sigLen, err := o.engine.Decrypt(key, env)
	s.Track(plainBuf)
	if err != nil {
		return 0, nil, o.fail(ctx, "decrypt", engineErr("decrypt", err))
	}
	plain, err := engine.CheckLen(plainBuf)
	if err != nil {
		return 0, nil, o.fail(ctx, "decrypt", fmt.Errorf("decrypt: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return 0, nil, o.fail(ctx, "split", err)
	}

	o.enter(Splitting)
	if sigLen <= 0 || sigLen > len(plain) {
		return 0, nil, o.fail(ctx, "split", fmt.Errorf("%w: signature length %d for %d-byte plaintext", common.ErrCorruptEnvelope, sigLen, len(plain)))
	}
	at := len(plain) - sigLen
	msg, err := s.Load(plain[:at])
	if err != nil {
		return 0, nil, o.fail(ctx, "split", engineErr("load message", err))
	}
	sig, err := s.Load(plain[at:])
	if err != nil {
		return 0, nil, o.fail(ctx, "split", engineErr("load signature", err))
	}

	if err := ctx.Err(); err != nil {
		return 0, nil, o.fail(ctx, "verify", err)
	}

	o.enter(Verifying)
	params, err := s.Load(o.params)
	if err != nil {
		return 0, nil, o.fail(ctx, "verify", engineErr("load params", err))
	}
	sender, err := s.Load([]byte(doc.SenderID))
	if err != nil {
		return 0, nil, o.fail(ctx, "verify", engineErr("load identity", err))
	}
	verdict, err := o.engine.Verify(params, sender, msg, sig)
	if err != nil {
		return 0, nil, o.fail(ctx, "verify", engineErr("verify", err))
	}

	switch verdict {
	case engine.Valid:
		return verdict, bytes.Clone(plain[:at]), nil
	case engine.Invalid:
		return verdict, nil, nil
	default:
		return 0, nil, o.fail(ctx, "verify", fmt.Errorf("%w: verify returned %s", common.ErrEngine, verdict))
	}
}
