package topic

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/kaans/mqtli/internal/errs"
	"github.com/kaans/mqtli/internal/payload"
)

// fileSink serializes writes to one open file across every Output that
// targets the same path, per spec §5's recommendation to lock rather than
// interleave lines.
type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *fileSink) write(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.f.Write(b)
	return err
}

func (e *Engine) fileSinkFor(path string, overwrite bool) (*fileSink, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.files[path]; ok {
		return s, nil
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	if overwrite {
		flags |= os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	s := &fileSink{f: f}
	e.files[path] = s
	return s, nil
}

// emit converts p into the Output's Format and writes it to the concrete
// target, per spec §4.5 step 3. An Output with no declared format has the
// zero FormatSpec, whose Kind is Raw.
func (e *Engine) emit(ctx context.Context, out Output, topicName string, p payload.Payload, qos byte, retain bool) error {
	switch out.Kind {
	case OutputNull:
		return nil

	case OutputConsole:
		wire, err := convertAndSerialize(p, out.Format)
		if err != nil {
			return err
		}
		fmt.Println(string(wire))
		return nil

	case OutputFile:
		wire, err := convertAndSerialize(p, out.Format)
		if err != nil {
			return err
		}
		sink, err := e.fileSinkFor(out.FilePath, out.FileOverwrite)
		if err != nil {
			return &errs.SinkError{Sink: "file:" + out.FilePath, Cause: err}
		}
		suffix := out.FileAppend
		if suffix == "" {
			suffix = "\n"
		}
		line := out.FilePrepend + string(wire) + suffix
		if err := sink.write([]byte(line)); err != nil {
			return &errs.SinkError{Sink: "file:" + out.FilePath, Cause: err}
		}
		return nil

	case OutputTopic:
		if out.TopicName == topicName {
			e.log.Warnf("output topic %q re-publishes to its own source topic; best-effort loop detection only (spec leaves re-processing unspecified)", out.TopicName)
		}
		wire, err := convertAndSerialize(p, out.Format)
		if err != nil {
			return err
		}
		if err := e.pub.Publish(ctx, out.TopicName, out.TopicQoS, out.TopicRetain, wire); err != nil {
			return &errs.SinkError{Sink: "topic:" + out.TopicName, Cause: err}
		}
		return nil

	case OutputSql:
		if e.sql == nil {
			return &errs.SinkError{Sink: "sql", Cause: fmt.Errorf("no sql_storage configured")}
		}
		if err := e.sql.Execute(ctx, out.InsertStatement, topicName, p, qos, retain, time.Now().UTC()); err != nil {
			return &errs.SinkError{Sink: "sql", Cause: err}
		}
		return nil

	default:
		return fmt.Errorf("unknown output kind %d", out.Kind)
	}
}

// Close closes every file sink opened by File outputs.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var firstErr error
	for _, s := range e.files {
		if err := s.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func convertAndSerialize(p payload.Payload, format FormatSpec) ([]byte, error) {
	opts := payload.Options{RawAs: format.RawAs, ProtoMessage: format.ProtoMessageName, ProtoPool: format.ProtoPool}
	converted, err := payload.Convert(p, format.Kind, opts)
	if err != nil {
		return nil, err
	}
	return converted.Serialize()
}
