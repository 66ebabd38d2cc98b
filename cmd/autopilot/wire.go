package main

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/danielpatrickdp/ssi-autopilot/internal/browser"
	"github.com/danielpatrickdp/ssi-autopilot/internal/config"
	"github.com/danielpatrickdp/ssi-autopilot/internal/history"
	"github.com/danielpatrickdp/ssi-autopilot/internal/ledger"
	"github.com/danielpatrickdp/ssi-autopilot/internal/pacing"
	"github.com/danielpatrickdp/ssi-autopilot/internal/regulation"
	"github.com/danielpatrickdp/ssi-autopilot/internal/session"
	"github.com/danielpatrickdp/ssi-autopilot/internal/snapshot"
	"github.com/danielpatrickdp/ssi-autopilot/internal/telemetry"
	"github.com/danielpatrickdp/ssi-autopilot/internal/textgen"
	"github.com/rs/zerolog/log"
)

// app carries the loaded configuration into the subcommands.
type app struct {
	cfg config.Config
}

// #region conversions
func (a *app) regulationConfig() (regulation.Config, error) {
	rc := regulation.DefaultConfig()
	rc.AutoRegulate = a.cfg.AutoRegulate
	rc.CooldownProbability = a.cfg.CooldownProbability
	if a.cfg.TierTablePath != "" {
		table, err := regulation.LoadTable(a.cfg.TierTablePath)
		if err != nil {
			return rc, err
		}
		rc.Table = table
	}
	return rc, nil
}

func (a *app) sessionConfig() session.Config {
	sc := session.DefaultConfig()
	sc.GroupURLs = a.cfg.GroupURLs
	sc.EnglishOnly = a.cfg.EnglishOnly
	sc.SkipProbability = a.cfg.SkipProbability
	sc.BrowseProbability = a.cfg.BrowseProbability
	sc.WithdrawProbability = a.cfg.WithdrawProbability
	sc.Endorse = a.cfg.Endorse
	if len(a.cfg.TargetRoles) > 0 {
		sc.TargetRoles = a.cfg.TargetRoles
	}
	return sc
}

func (a *app) browserConfig() browser.Config {
	bc := browser.DefaultConfig()
	bc.ControlURL = a.cfg.BrowserControlURL
	bc.Bin = a.cfg.BrowserBin
	bc.Headless = a.cfg.Headless
	bc.UserDataDir = a.cfg.UserDataDir
	bc.ActionTimeout = a.cfg.ActionTimeout
	return bc
}

func (a *app) persona() textgen.Persona {
	p := textgen.DefaultPersona()
	if a.cfg.PersonaRole != "" {
		p.Role = a.cfg.PersonaRole
	}
	if a.cfg.PersonaExpertise != "" {
		p.Expertise = a.cfg.PersonaExpertise
	}
	return p
}

func (a *app) composer() *textgen.Composer {
	v := textgen.NewValidator(textgen.DefaultValidatorConfig())
	var gen textgen.Generator
	if a.cfg.OpenAIAPIKey != "" {
		gen = textgen.NewOpenAIGenerator(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.Models, v)
	} else {
		log.Info().Msg("no OpenAI key, using stock comments and notes")
	}
	return textgen.NewComposer(gen, v, a.persona())
}

// rootRand returns the run's master source. Every other source is derived
// from it so a fixed seed replays the whole run.
func (a *app) rootRand() *rand.Rand {
	seed := a.cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Debug().Uint64("seed", seed).Msg("random source")
	return regulation.NewRand(seed)
}

// #endregion conversions

// #region plan
// plan evaluates the policy against the stored history.
func (a *app) plan(root *rand.Rand) (regulation.Outcome, *history.Store, error) {
	store, err := history.Open(a.cfg.HistoryPath)
	if err != nil {
		return regulation.Outcome{}, nil, err
	}
	rc, err := a.regulationConfig()
	if err != nil {
		return regulation.Outcome{}, nil, err
	}
	out, err := regulation.Evaluate(regulation.Summarize(store), rc, regulation.NewRand(root.Uint64()))
	if err != nil {
		return regulation.Outcome{}, nil, err
	}
	return out, store, nil
}

// #endregion plan

// #region session
// stack is everything a browser session needs. close releases it.
type stack struct {
	runner  *session.Runner
	session *session.Session
	close   func()
}

func (a *app) openSession(ctx context.Context) (*stack, error) {
	root := a.rootRand()
	out, store, err := a.plan(root)
	if err != nil {
		return nil, err
	}
	log.Info().Str("tier", string(out.Tier())).
		Int("days_active", out.Summary().DaysActive).
		Float64("last_score", out.Summary().LastScore).
		Msg("regulation outcome")

	led, err := ledger.NewStore(a.cfg.LedgerPath)
	if err != nil {
		return nil, err
	}
	shutdown, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint: a.cfg.OTLPEndpoint,
		ServiceName:  "ssi-autopilot",
		Version:      version,
	})
	if err != nil {
		led.Close()
		return nil, err
	}
	b, err := browser.Launch(ctx, a.browserConfig())
	if err != nil {
		shutdown(context.Background())
		led.Close()
		return nil, fmt.Errorf("%w: %w", session.ErrFatal, err)
	}

	pc := pacing.DefaultConfig()
	pc.SpeedFactor = a.cfg.SpeedFactor
	s := session.New(out, regulation.NewRand(root.Uint64()), pacing.New(pc, regulation.NewRand(root.Uint64())))
	runner := session.NewRunner(a.sessionConfig(), session.Deps{
		Actuator:     b,
		Composer:     a.composer(),
		Recorder:     snapshot.NewRecorder(store, led),
		Ledger:       led,
		ProvenanceDB: led.DB(),
	}, regulation.NewRand(root.Uint64()))

	return &stack{
		runner:  runner,
		session: s,
		close: func() {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("close browser")
			}
			if err := shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("flush traces")
			}
			led.Close()
		},
	}, nil
}

// #endregion session
