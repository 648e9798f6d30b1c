package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medscribe/internal/bootstrap"
	"medscribe/internal/domain"
	"medscribe/internal/reconcile"
)

func main() {
	audioDir := flag.String("audio-dir", "", "directory for finalized audio clips (default: temp dir)")
	recordFor := flag.Duration("record-for", 0, "stop recording automatically after this duration (0 = wait for Ctrl-C)")
	patientCtxPath := flag.String("patient-context", "", "JSON file with known patient background")
	commitPatient := flag.Bool("commit-patient", false, "persist a new patient proposed from the extraction")
	verbose := flag.Bool("verbose", false, "log live segments and audio levels")
	flag.Parse()

	logger := log.New(os.Stderr, "medscribe: ", log.LstdFlags)
	if err := run(logger, *audioDir, *recordFor, *patientCtxPath, *commitPatient, *verbose); err != nil {
		logger.Fatal(err)
	}
}

func run(logger *log.Logger, audioDir string, recordFor time.Duration, patientCtxPath string, commitPatient bool, verbose bool) error {
	ctx := context.Background()

	completed := make(chan struct{})
	var finalSession domain.RecordingSession
	var finalExtracted domain.ExtractedMedicalData

	services, err := bootstrap.Build(ctx, &logSink{logger: logger, verbose: verbose}, bootstrap.Options{
		AudioDir: audioDir,
		OnComplete: func(session domain.RecordingSession, extracted domain.ExtractedMedicalData) {
			finalSession = session
			finalExtracted = extracted
			close(completed)
		},
		OnError: func(err error) {
			logger.Printf("pipeline error: %v", err)
		},
	})
	if err != nil {
		return err
	}
	defer services.Close(ctx)

	if patientCtxPath != "" {
		pctx, err := loadPatientContext(patientCtxPath)
		if err != nil {
			return err
		}
		services.Machine.UsePatientContext(pctx)
	}

	if err := services.Machine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start recording: %w", err)
	}
	logger.Print("recording, press Ctrl-C to stop")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	var timer <-chan time.Time
	if recordFor > 0 {
		timer = time.After(recordFor)
	}
	select {
	case <-interrupt:
	case <-timer:
	}
	signal.Stop(interrupt)

	if err := services.Machine.Stop(ctx); err != nil {
		return fmt.Errorf("pipeline failed: %w", err)
	}
	if !services.Config.Session.AutoTranscribe {
		if err := services.Machine.Transcribe(ctx); err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
	}

	select {
	case <-completed:
	case <-time.After(10 * time.Minute):
		return fmt.Errorf("pipeline did not complete")
	}

	if _, err := services.Committer.CommitSession(ctx, finalSession); err != nil {
		return err
	}
	logger.Printf("session %s committed (%ds of audio, %s)", finalSession.ID, finalSession.Duration, finalSession.AudioPath)

	if finalSession.Transcription != nil {
		fmt.Println(finalSession.Transcription.Text)
	}
	if summary := reconcile.Summary(finalExtracted); summary != "" {
		fmt.Print(summary)
	}

	if commitPatient {
		patient, err := reconcile.ProposeNewPatient(finalExtracted, reconcile.Prefill(finalExtracted))
		if err != nil {
			return err
		}
		id, err := services.Committer.CommitNewPatient(ctx, patient)
		if err != nil {
			return err
		}
		logger.Printf("patient %s committed", id)
	}

	return nil
}

func loadPatientContext(path string) (*domain.PatientContext, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read patient context: %w", err)
	}
	var pctx domain.PatientContext
	if err := json.Unmarshal(contents, &pctx); err != nil {
		return nil, fmt.Errorf("failed to parse patient context: %w", err)
	}
	return &pctx, nil
}

// logSink adapts the event stream to the terminal.
type logSink struct {
	logger  *log.Logger
	verbose bool
}

func (s *logSink) SessionStateChanged(status domain.SessionStatus, reason domain.SessionStateReason) {
	s.logger.Printf("session %s (%s)", status, reason)
}

func (s *logSink) LiveSegment(segment domain.TranscriptionSegment) {
	if s.verbose {
		s.logger.Printf("caption [%6.1fs] %s", segment.Timestamp, segment.Text)
	}
}

func (s *logSink) AudioLevel(level float64) {
	if s.verbose {
		s.logger.Printf("level %.2f", level)
	}
}

func (s *logSink) SessionError(code domain.ErrorCode, detail string) {
	s.logger.Printf("error [%s] %s", code, detail)
}
