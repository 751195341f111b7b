package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

var ErrLeft = errors.New("meeting left")

// Host opens the rendezvous, acquires devices and returns our id together with
// the link other participants join through.
func (o *Orchestrator) Host(ctx context.Context) (domain.ParticipantID, string, error) {
	id, err := o.open(ctx)
	if err != nil {
		return "", "", err
	}
	o.startMedia(ctx)

	link, err := domain.RoomLink(o.baseURL, id)
	if err != nil {
		return id, "", err
	}
	log.Info().Str("module", "orch").Str("self", string(id)).Str("link", link).Msg("hosting")
	return id, link, nil
}

// Join opens the rendezvous, acquires devices and calls the host.
func (o *Orchestrator) Join(ctx context.Context, host domain.ParticipantID) error {
	id, err := o.open(ctx)
	if err != nil {
		return err
	}
	if id == host {
		return fmt.Errorf("%w: cannot join own room %s", domain.ErrConnection, host)
	}
	o.startMedia(ctx)

	local := o.Media.Outgoing()
	conn, err := o.Rendezvous.Call(ctx, host, local)
	if err != nil {
		err = fmt.Errorf("%w: call %s: %w", domain.ErrConnection, host, err)
		o.notify(NoticeConnectionError, host, err)
		return err
	}
	s, err := o.Registry.RegisterOutbound(host, conn, local)
	if errors.Is(err, domain.ErrDuplicateConnection) {
		log.Info().Str("module", "orch").Str("peer", string(host)).Msg("already connected to host")
		return nil
	}
	if err != nil {
		return err
	}
	o.bindChat(s.Peer(), s.Conn())
	o.syncSession(ctx, s)
	log.Info().Str("module", "orch").Str("self", string(id)).Str("host", string(host)).Msg("joined")
	return nil
}

func (o *Orchestrator) open(ctx context.Context) (domain.ParticipantID, error) {
	if o.left.Load() {
		return "", ErrLeft
	}
	o.Rendezvous.OnIncomingConnection(o.accept)
	id, err := o.Rendezvous.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: open rendezvous: %w", domain.ErrConnection, err)
	}
	o.mu.Lock()
	o.self = id
	o.mu.Unlock()
	return id, nil
}

// startMedia acquires camera and microphone. Failure only leaves us in
// no-media mode.
func (o *Orchestrator) startMedia(ctx context.Context) {
	ctx, cancel := o.withTimeout(ctx, o.mediaTimeout)
	defer cancel()
	if _, err := o.Media.AcquireCameraAndMic(ctx, o.constraints); err != nil {
		o.notify(NoticeDeviceUnavailable, "", err)
	}
}

// accept handles a call placed to us. Registration comes first so a racing
// duplicate is closed before anything is answered.
func (o *Orchestrator) accept(conn core.ConnectionHandle) {
	peer := conn.Peer()
	if o.left.Load() {
		_ = conn.Close()
		return
	}

	local := o.Media.Outgoing()
	s, err := o.Registry.RegisterInbound(peer, conn, local)
	if err != nil {
		log.Debug().Str("module", "orch").Str("peer", string(peer)).Err(err).Msg("incoming call dropped")
		return
	}

	ctx, cancel := o.withTimeout(context.Background(), o.answerTimeout)
	defer cancel()
	if err := conn.Answer(ctx, local); err != nil {
		s.Fail(fmt.Errorf("%w: answer: %w", domain.ErrConnection, err))
		return
	}
	o.bindChat(peer, conn)
	o.syncSession(ctx, s)
	log.Info().Str("module", "orch").Str("peer", string(peer)).Msg("call accepted")
}

// Leave closes every session, then the rendezvous and the devices. Idempotent.
func (o *Orchestrator) Leave(ctx context.Context) error {
	o.leaveOnce.Do(func() {
		o.left.Store(true)
		closeErr := o.Registry.CloseAll(ctx)

		var g errgroup.Group
		g.Go(o.Rendezvous.Close)
		g.Go(func() error {
			o.Media.Release()
			return nil
		})
		o.leaveErr = errors.Join(closeErr, g.Wait())
		log.Info().Str("module", "orch").Str("self", string(o.Self())).Msg("left meeting")
	})
	return o.leaveErr
}
