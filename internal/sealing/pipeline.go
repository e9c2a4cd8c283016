package sealing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"sealgate/internal/access"
	"sealgate/internal/events"
	"sealgate/internal/storage"
	id "sealgate/pkg/domain"
	strutil "sealgate/pkg/platform/strings"
)

// Publisher is the outbound half of the event bus. The pipeline only emits
// events; handler subscriptions are wired at startup.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Pipeline drives one sealing job end to end: stamp, sign, distribute,
// grant. Stamping and signing are fail-closed; per-signer grant delivery is
// best-effort and never blocks the other signers or the sealed event.
type Pipeline struct {
	docs     storage.Store
	spaces   storage.SpaceResolver
	stamper  Stamper
	signer   Signer
	sealer   *access.Sealer
	grants   *access.Cache
	bus      Publisher
	grantTTL time.Duration
	log      *slog.Logger

	now func() time.Time
}

func NewPipeline(
	docs storage.Store,
	spaces storage.SpaceResolver,
	stamper Stamper,
	signer Signer,
	sealer *access.Sealer,
	grants *access.Cache,
	bus Publisher,
	grantTTL time.Duration,
	log *slog.Logger,
) *Pipeline {
	return &Pipeline{
		docs:     docs,
		spaces:   spaces,
		stamper:  stamper,
		signer:   signer,
		sealer:   sealer,
		grants:   grants,
		bus:      bus,
		grantTTL: grantTTL,
		log:      log,
		now:      time.Now,
	}
}

// HandleReadyToSeal is the bus entry point for DocumentReadyToSeal. Errors
// propagate so delivery can be retried.
func (p *Pipeline) HandleReadyToSeal(ctx context.Context, body []byte) error {
	var evt events.DocumentReadyToSeal
	if err := json.Unmarshal(body, &evt); err != nil {
		return fmt.Errorf("unmarshal %s: %w", events.KeyDocumentReadyToSeal, err)
	}
	return p.Seal(ctx, evt)
}

// Seal runs the full job. On success every recipient space holds the sealed
// PDF plus its detached signature, every signer has a registered access
// grant, and DocumentSealed has been published.
func (p *Pipeline) Seal(ctx context.Context, evt events.DocumentReadyToSeal) error {
	start := p.now()
	log := p.log.With(
		"signature_request_id", evt.SignatureRequestID,
		"document_id", evt.DocumentID,
	)

	owner, err := p.spaces.OwnerOf(ctx, evt.DocumentID)
	if err != nil {
		log.Error("resolving document owner failed", "error", err)
		sealsFailedTotal.WithLabelValues("resolve").Inc()
		return fmt.Errorf("resolve owner of %s: %w", evt.DocumentID, err)
	}

	original, err := p.docs.Read(ctx, owner, evt.DocumentPath)
	if err != nil {
		log.Error("reading original document failed", "error", err, "path", evt.DocumentPath)
		sealsFailedTotal.WithLabelValues("read").Inc()
		return fmt.Errorf("read original %s: %w", evt.DocumentPath, err)
	}

	stamped, err := p.stamper.Stamp(ctx, original, evt.Stamps)
	if err != nil {
		log.Error("stamping failed, no artifact produced", "error", err, "stamps", len(evt.Stamps))
		sealsFailedTotal.WithLabelValues("stamp").Inc()
		return fmt.Errorf("stamp document: %w", err)
	}

	signature, err := p.signer.Sign(ctx, stamped)
	if err != nil {
		log.Error("sealing signature failed, no artifact produced", "error", err)
		sealsFailedTotal.WithLabelValues("sign").Inc()
		return fmt.Errorf("sign sealed document: %w", err)
	}

	name := sealedName(evt.DocumentID, start)
	relPath, err := p.distribute(ctx, owner, evt.Stamps, name, stamped, signature)
	if err != nil {
		log.Error("distributing sealed artifact failed", "error", err)
		sealsFailedTotal.WithLabelValues("distribute").Inc()
		return err
	}

	meta, err := p.docs.FindMetadata(ctx, owner, relPath)
	if err != nil {
		log.Error("sealed artifact metadata missing in uploader space", "error", err, "path", relPath)
		sealsFailedTotal.WithLabelValues("metadata").Inc()
		return fmt.Errorf("sealed artifact metadata: %w", err)
	}

	emails := p.notifySigners(ctx, log, evt, owner, meta)

	sealed := events.DocumentSealed{
		SignatureRequestID: evt.SignatureRequestID,
		SealedDocumentID:   meta.ID,
		Path:               meta.Path,
		SignerEmails:       strutil.DedupeAndTrimLower(emails),
	}
	if err := p.bus.Publish(ctx, events.KeyDocumentSealed, sealed); err != nil {
		log.Error("publishing sealed event failed", "error", err)
		sealsFailedTotal.WithLabelValues("publish").Inc()
		return fmt.Errorf("publish %s: %w", events.KeyDocumentSealed, err)
	}

	sealsCompletedTotal.Inc()
	sealDuration.Observe(p.now().Sub(start).Seconds())
	log.Info("document sealed", "path", meta.Path, "signers", len(evt.Stamps))
	return nil
}

// distribute writes the sealed PDF and its detached signature into the
// uploader's space and every distinct signer space. Returns the artifact's
// path relative to the uploader's space.
func (p *Pipeline) distribute(ctx context.Context, owner id.SpaceID, stamps []events.SignatureStamp, name string, pdf, signature []byte) (string, error) {
	recipients := []id.SpaceID{owner}
	seen := map[id.SpaceID]struct{}{owner: {}}
	for _, st := range stamps {
		// A signer's personal space shares the signer's identifier.
		space := id.SpaceID(st.SignerID)
		if _, dup := seen[space]; dup {
			continue
		}
		seen[space] = struct{}{}
		recipients = append(recipients, space)
	}

	var ownerPath string
	for _, space := range recipients {
		relPath, err := p.docs.Save(ctx, space, name, pdf, "sealed")
		if err != nil {
			return "", fmt.Errorf("save sealed copy for space %s: %w", space, err)
		}
		if _, err := p.docs.Save(ctx, space, name+".p7s", signature, "sealed"); err != nil {
			return "", fmt.Errorf("save seal signature for space %s: %w", space, err)
		}
		if space == owner {
			ownerPath = relPath
		}
	}
	return ownerPath, nil
}

// notifySigners registers a download grant per signer and publishes the
// matching DocumentDownloadReady event. A failure for one signer is logged
// and skipped; the remaining signers still get their grants.
func (p *Pipeline) notifySigners(ctx context.Context, log *slog.Logger, evt events.DocumentReadyToSeal, owner id.SpaceID, meta storage.Metadata) []string {
	emails := make([]string, 0, len(evt.Stamps))
	for _, st := range evt.Stamps {
		emails = append(emails, st.SignerEmail)
		if err := p.notifySigner(ctx, st, owner, meta); err != nil {
			grantDeliveriesSkippedTotal.Inc()
			log.Warn("signer download notification skipped",
				"error", err,
				"signer_id", st.SignerID,
				"signer_email", st.SignerEmail,
			)
		}
	}
	return emails
}

func (p *Pipeline) notifySigner(ctx context.Context, st events.SignatureStamp, owner id.SpaceID, meta storage.Metadata) error {
	token, err := access.NewAccessToken()
	if err != nil {
		return err
	}
	session, err := access.NewSessionID()
	if err != nil {
		return err
	}
	issued := p.now()
	expires := issued.Add(p.grantTTL)
	fingerprint := access.Fingerprint(meta.ID, st.SignerID, session, issued)

	grant := access.Grant{
		DocumentID:  meta.ID,
		SignerID:    st.SignerID,
		SignerEmail: st.SignerEmail,
		AccessToken: token,
		SessionID:   session,
		Fingerprint: fingerprint,
		Owner:       owner,
		Document:    meta,
		CreatedAt:   issued,
		ExpiresAt:   expires,
	}
	if err := p.grants.PrepareAccess(ctx, grant); err != nil {
		return fmt.Errorf("prepare access grant: %w", err)
	}

	payload := access.Payload{
		DocumentID:  meta.ID,
		SignerID:    st.SignerID,
		SignerEmail: st.SignerEmail,
		AccessToken: token,
		SessionID:   session,
		Fingerprint: fingerprint,
		Path:        meta.Path,
		IssuedAt:    issued,
		ExpiresAt:   expires,
	}
	sealed, err := p.sealer.Seal(payload)
	if err != nil {
		return fmt.Errorf("seal download payload: %w", err)
	}

	ready := events.DocumentDownloadReady{
		SignerEmail: st.SignerEmail,
		Envelope: events.SecureEnvelope{
			Payload:   sealed,
			Integrity: payload.IntegrityHash(),
			ExpiresAt: expires,
		},
	}
	if err := p.bus.Publish(ctx, events.KeyDocumentDownloadReady, ready); err != nil {
		return fmt.Errorf("publish %s: %w", events.KeyDocumentDownloadReady, err)
	}
	return nil
}

func sealedName(doc id.DocumentID, at time.Time) string {
	return fmt.Sprintf("%s_sealed_%s.pdf", doc, at.UTC().Format("20060102T150405"))
}
