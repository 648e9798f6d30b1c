package bootstrap

import (
	"context"

	"medscribe/internal/audio"
	"medscribe/internal/config"
	"medscribe/internal/domain"
	"medscribe/internal/ports"
	"medscribe/internal/providers/deepgram"
	"medscribe/internal/providers/reasoning"
	"medscribe/internal/providers/whisper"
	"medscribe/internal/rules"
	"medscribe/internal/store"
	"medscribe/internal/usecase"
)

// Services is the assembled runtime graph.
type Services struct {
	Machine   *usecase.SessionMachine
	Committer *usecase.Committer
	Store     ports.DocumentStore
	Config    config.Config

	closeStore func(context.Context) error
}

// Close releases held resources, currently just the document store.
func (s Services) Close(ctx context.Context) error {
	if s.closeStore == nil {
		return nil
	}
	return s.closeStore(ctx)
}

// Options adjusts wiring that configuration alone cannot decide.
type Options struct {
	// AudioDir is where finalized clips are written. Empty falls back
	// to the machine's default.
	AudioDir   string
	OnComplete func(session domain.RecordingSession, extracted domain.ExtractedMedicalData)
	OnError    func(err error)
}

// Build wires all backend dependencies for the current runtime. A
// configured Mongo URI selects the Mongo store; otherwise records stay
// in memory for the process lifetime.
func Build(ctx context.Context, eventSink ports.EventSink, opts Options) (Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return Services{}, err
	}

	normalizer, err := rules.NewNormalizer(cfg.Rules.Path)
	if err != nil {
		return Services{}, err
	}

	var documentStore ports.DocumentStore
	var closeStore func(context.Context) error
	if cfg.Store.MongoURI != "" {
		mongoStore, err := store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.Database)
		if err != nil {
			return Services{}, err
		}
		documentStore = mongoStore
		closeStore = mongoStore.Close
	} else {
		documentStore = store.NewMemoryStore()
	}

	var captioner ports.LiveCaptioner
	if cfg.Speech.LiveCaptions {
		captioner = deepgram.NewCaptioner(deepgram.Config{
			APIKey:     cfg.Speech.BearerToken,
			APIBaseURL: cfg.Speech.LiveBaseURL,
			Language:   cfg.Speech.Language,
		})
	}

	machine := usecase.NewSessionMachine(
		audio.NewRecorder(cfg.Audio.RecorderCommand),
		whisper.NewClient(whisper.Config{
			BearerToken: cfg.Speech.BearerToken,
			APIBaseURL:  cfg.Speech.APIBaseURL,
			Model:       cfg.Speech.Model,
			Language:    cfg.Speech.Language,
		}),
		reasoning.NewClient(reasoning.Config{
			BearerToken:     cfg.Reasoning.BearerToken,
			APIBaseURL:      cfg.Reasoning.APIBaseURL,
			AnalysisModel:   cfg.Reasoning.AnalysisModel,
			ExtractionModel: cfg.Reasoning.ExtractionModel,
		}),
		captioner,
		normalizer,
		eventSink,
		usecase.Config{
			Capture: ports.CaptureConfig{
				InputFormat:   cfg.Audio.InputFormat,
				InputDevice:   cfg.Audio.InputDevice,
				SampleRate:    cfg.Audio.SampleRate,
				Channels:      cfg.Audio.Channels,
				PrimaryMime:   audio.MimeMP4,
				FallbackMime:  audio.MimeWebM,
				FlushInterval: int(cfg.Session.FlushInterval.Milliseconds()),
			},
			Streaming: ports.StreamingConfig{
				SampleRate:     cfg.Audio.SampleRate,
				Channels:       cfg.Audio.Channels,
				Encoding:       "linear16",
				InterimResults: true,
			},
			MaxDuration:    cfg.Session.MaxDuration,
			AutoTranscribe: cfg.Session.AutoTranscribe,
			AutoAnalyze:    cfg.Session.AutoAnalyze,
			LiveCaptions:   cfg.Speech.LiveCaptions,
			ChunkSize:      cfg.Session.ChunkSize,
			AudioDir:       opts.AudioDir,
			OnComplete:     opts.OnComplete,
			OnError:        opts.OnError,
		},
	)

	return Services{
		Machine:    machine,
		Committer:  usecase.NewCommitter(documentStore, eventSink),
		Store:      documentStore,
		Config:     cfg,
		closeStore: closeStore,
	}, nil
}
