package logger

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/logzio/logzio-go"
	"github.com/sinnahq/sinna/tools/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logzioCore is a custom core that sends output to Logz.io
type logzioCore struct {
	// enabler decides whether the entry should be logged or not,
	// according to its level.
	enabler zapcore.LevelEnabler
	// encoder is responsible for marshalling the entry to the desired format.
	encoder zapcore.Encoder
	// sender is the client used to send the events to Logz.io
	sender *logzio.LogzioSender
	// senderLock is a lock for the queue used by Logz.io
	senderLock *sync.Mutex
}

// messageFields are additional fields attached to every Logz.io message.
var (
	messageFields   []zapcore.Field
	messageFieldsRW sync.RWMutex
)

// newLogzioCore will initialize logz and necessary fields.
func newLogzioCore(encoder zapcore.Encoder, levelEnab zapcore.LevelEnabler) zapcore.Core {
	logzioShippingToken := os.Getenv("LOGZIO_SHIPPING_TOKEN")
	if logzioShippingToken == "" {
		return zapcore.NewNopCore()
	}

	sender, err := logzio.New(
		logzioShippingToken,
		logzio.SetUrl("https://listener.logz.io:8071"),
		logzio.SetDrainDuration(time.Second*3),
		logzio.SetCheckDiskSpace(false),
	)
	if err != nil {
		// Here we use log because the logger hasn't been
		// fully initialized.
		log.Printf("couldn't start logz.io sender: %s", err)
		return zapcore.NewNopCore()
	}

	return &logzioCore{
		encoder:    encoder,
		enabler:    levelEnab,
		sender:     sender,
		senderLock: &sync.Mutex{},
	}
}

// newLogzioEncoderConfig returns a configuration that is appropiate for
// using with logz.io.
func newLogzioEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "type",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.EpochTimeEncoder,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// AddLogzioFields will add the fields to every Logz.io message, e.g. the
// name of the tool that is running.
func AddLogzioFields(fields map[string]string) {
	messageFieldsRW.Lock()
	defer messageFieldsRW.Unlock()

	for name, val := range fields {
		messageFields = append(messageFields, zap.String(name, val))
	}
}

// Enabled is used to check whether the event should be logged
// or not, depending on its level.
func (lc *logzioCore) Enabled(level zapcore.Level) bool {
	return lc.enabler.Enabled(level)
}

// With adds the fields defined in the configuration to the core.
func (lc *logzioCore) With(fields []zapcore.Field) zapcore.Core {
	core := &logzioCore{
		enabler:    lc.enabler,
		encoder:    lc.encoder.Clone(),
		sender:     lc.sender,
		senderLock: lc.senderLock,
	}

	for i := range fields {
		fields[i].AddTo(core.encoder)
	}

	return core
}

// Check will add the current entry (event) to the core, which in the future will
// send it to logz.io.
func (lc *logzioCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if lc.Enabled(ent.Level) {
		return ce.AddCore(ent, lc)
	}
	return ce
}

// Write is where the core sends the event payload to logz.io
func (lc *logzioCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	if !usingProdLogging() {
		return nil
	}

	messageFieldsRW.RLock()
	allFields := append(append([]zapcore.Field{}, messageFields...), fields...)
	messageFieldsRW.RUnlock()

	buf, err := lc.encoder.EncodeEntry(ent, allFields)
	if err != nil {
		return err
	}

	lc.senderLock.Lock()
	defer lc.senderLock.Unlock()

	err = lc.sender.Send(buf.Bytes())
	buf.Free()
	if err != nil {
		return utils.MakeError("couldn't send payload to logz.io: %s", err)
	}
	return nil
}

// Sync drains the queue.
func (lc *logzioCore) Sync() error {
	if !usingProdLogging() {
		return nil
	}

	lc.senderLock.Lock()
	defer lc.senderLock.Unlock()

	return lc.sender.Sync()
}
