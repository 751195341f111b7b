package orch

import (
	"context"
	"errors"
	"fmt"

	"github.com/dkeye/Meet/internal/core"
	"github.com/dkeye/Meet/internal/domain"
	"github.com/rs/zerolog/log"
)

// ToggleCamera flips the camera's enabled flag. Peers see the stall as no
// video; nothing is renegotiated or replaced.
func (o *Orchestrator) ToggleCamera() (bool, error) {
	on, err := o.Media.ToggleCameraEnabled()
	if err != nil {
		o.notify(NoticeDeviceUnavailable, "", err)
	}
	return on, err
}

func (o *Orchestrator) ToggleMicrophone() (bool, error) {
	on, err := o.Media.ToggleMicrophoneEnabled()
	if err != nil {
		o.notify(NoticeDeviceUnavailable, "", err)
	}
	return on, err
}

// StartCamera retries device acquisition, e.g. after permission was granted.
// New tracks reach the sessions through the source listener.
func (o *Orchestrator) StartCamera(ctx context.Context) error {
	ctx, cancel := o.withTimeout(ctx, o.mediaTimeout)
	defer cancel()
	_, err := o.Media.AcquireCameraAndMic(ctx, o.constraints)
	if err != nil {
		o.notify(NoticeDeviceUnavailable, "", err)
	}
	return err
}

func (o *Orchestrator) ShareScreen(ctx context.Context, includeAudio bool) error {
	ctx, cancel := o.withTimeout(ctx, o.mediaTimeout)
	defer cancel()
	_, _, err := o.Media.StartScreenShare(ctx, includeAudio)
	if err != nil {
		if kind, ok := noticeFor(err); ok {
			o.notify(kind, "", err)
		}
	}
	return err
}

func (o *Orchestrator) StopScreenShare() bool {
	return o.Media.StopScreenShare()
}

// SendChat sends text to every live session that carries a message channel
// and returns how many received it.
func (o *Orchestrator) SendChat(text string) (int, error) {
	var (
		sent int
		errs []error
	)
	for _, s := range o.Registry.Snapshot() {
		ch, ok := chatOf(s.Conn())
		if !ok {
			continue
		}
		if err := ch.Send(text); err != nil {
			errs = append(errs, fmt.Errorf("chat to %s: %w", s.Peer(), err))
			continue
		}
		sent++
	}
	return sent, errors.Join(errs...)
}

func (o *Orchestrator) bindChat(peer domain.ParticipantID, conn core.ConnectionHandle) {
	ch, ok := chatOf(conn)
	if !ok {
		return
	}
	ch.OnMessage(func(from domain.ParticipantID, text string) {
		log.Info().Str("module", "chat").Str("peer", string(from)).Str("text", text).Msg("message")
		if o.OnChat != nil {
			o.OnChat(from, text)
		}
	})
	log.Debug().Str("module", "orch").Str("peer", string(peer)).Msg("chat bound")
}

func chatOf(conn core.ConnectionHandle) (core.MessageChannel, bool) {
	cc, ok := conn.(core.ChatCapable)
	if !ok {
		return nil, false
	}
	ch := cc.Chat()
	return ch, ch != nil
}
