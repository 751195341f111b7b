package main

import (
	"bufio"
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Meet/internal/adapters/device"
	"github.com/dkeye/Meet/internal/adapters/playout"
	"github.com/dkeye/Meet/internal/adapters/rendezvous"
	"github.com/dkeye/Meet/internal/adapters/rtc"
	"github.com/dkeye/Meet/internal/app"
	"github.com/dkeye/Meet/internal/app/media"
	"github.com/dkeye/Meet/internal/app/orch"
	"github.com/dkeye/Meet/internal/app/presence"
	"github.com/dkeye/Meet/internal/config"
	"github.com/dkeye/Meet/internal/domain"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	cc := cfg.Client

	host, joining, err := domain.RoomFromURL(cc.RoomURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cc.RoomURL).Msg("bad room url")
	}

	outputs := playout.NewRouter(nil)
	defer outputs.CloseAll()

	rtcCfg := rtc.DefaultConfig()
	rtcCfg.ICEServers = cfg.ICEServers
	rtcCfg.Loopback = cc.Loopback
	if cc.StaleAfter > 0 {
		rtcCfg.StaleAfter = cc.StaleAfter
	}
	factory, err := rtc.NewFactory(rtcCfg, outputs)
	if err != nil {
		log.Fatal().Err(err).Msg("webrtc api")
	}
	rv := rendezvous.NewClient(rendezvous.Options{URL: cc.SignalURL, PingEvery: cfg.PingPeriod}, rendezvous.FromRTC(factory))

	provider := device.NewProvider(device.Files{
		Camera:      cc.CameraFile,
		Microphone:  cc.MicrophoneFile,
		Screen:      cc.ScreenFile,
		ScreenAudio: cc.ScreenAudioFile,
		LoopCamera:  cc.LoopCamera,
	})

	notifier := orch.LogNotifier{}
	projector := presence.NewProjector(presence.NewLogRenderer(), outputs)
	registry := app.NewRegistry(projector, orch.SessionNotices(notifier))

	o := orch.New(orch.Deps{
		Registry:    registry,
		Media:       media.NewManager(provider),
		Coordinator: orch.NewCoordinator(registry, cc.ReplaceTimeout),
		Rendezvous:  rv,
		Notifier:    notifier,
		OnChat: func(from domain.ParticipantID, text string) {
			log.Info().Str("module", "chat").Str("from", string(from)).Msg(text)
		},
		Constraints:   domain.ConstraintsFor(domain.DeviceClass(cc.DeviceClass)),
		BaseURL:       cc.BaseURL,
		MediaTimeout:  cc.MediaTimeout,
		AnswerTimeout: cc.AnswerTimeout,
	})

	if joining {
		if err := o.Join(ctx, host); err != nil {
			log.Error().Err(err).Str("host", string(host)).Msg("join failed")
		}
	} else {
		id, link, err := o.Host(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("host failed")
		}
		log.Info().Str("id", string(id)).Str("link", link).Msg("meeting started, share the link")
	}

	go commands(ctx, cancel, o, outputs)

	<-ctx.Done()
	leaveCtx, leaveCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer leaveCancel()
	if err := o.Leave(leaveCtx); err != nil {
		log.Error().Err(err).Msg("leave")
	}
	log.Info().Msg("left meeting")
}

// commands reads user actions from stdin, one per line.
func commands(ctx context.Context, quit context.CancelFunc, o *orch.Orchestrator, outputs *playout.Router) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		cmd, arg, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		switch cmd {
		case "":
		case "camera":
			on, err := o.ToggleCamera()
			log.Info().Err(err).Bool("enabled", on).Msg("camera")
		case "mic":
			on, err := o.ToggleMicrophone()
			log.Info().Err(err).Bool("enabled", on).Msg("microphone")
		case "start-camera":
			if err := o.StartCamera(ctx); err != nil {
				log.Warn().Err(err).Msg("start camera")
			}
		case "share":
			if err := o.ShareScreen(ctx, arg == "audio"); err != nil {
				log.Warn().Err(err).Msg("share screen")
			}
		case "stop":
			o.StopScreenShare()
		case "chat":
			n, err := o.SendChat(arg)
			log.Info().Err(err).Int("delivered", n).Msg("chat sent")
		case "mute", "unmute":
			peer, err := domain.ParseParticipantID(arg)
			if err != nil {
				log.Warn().Err(err).Msg(cmd)
				continue
			}
			if !outputs.SetMuted(peer, cmd == "mute") {
				log.Warn().Str("peer", string(peer)).Msg("no audio output for peer")
			}
		case "hangup":
			peer, err := domain.ParseParticipantID(arg)
			if err != nil {
				log.Warn().Err(err).Msg(cmd)
				continue
			}
			o.Registry.Unregister(peer)
		case "peers":
			for _, s := range o.Registry.Snapshot() {
				log.Info().Str("peer", string(s.Peer())).Str("state", s.State().String()).Msg("session")
			}
		case "leave", "quit":
			quit()
			return
		default:
			log.Warn().Str("cmd", cmd).Msg("commands: camera, mic, start-camera, share [audio], stop, chat <text>, mute|unmute|hangup <peer>, peers, leave")
		}
	}
}
