package shroud

import (
	"context"
	"errors"
	"time"

	"github.com/zoobzio/capitan"
)

// Signals for shroud events.
var (
	SignalProcessorCreated      = capitan.NewSignal("shroud.processor.created", "Processor instantiated")
	SignalSendStart             = capitan.NewSignal("shroud.send.start", "Send operation beginning")
	SignalSendComplete          = capitan.NewSignal("shroud.send.complete", "Send operation finished")
	SignalReceiveStart          = capitan.NewSignal("shroud.receive.start", "Receive operation beginning")
	SignalReceiveComplete       = capitan.NewSignal("shroud.receive.complete", "Receive operation finished")
	SignalFieldEncryptorCreated = capitan.NewSignal("shroud.fields.created", "Field encryptor instantiated")
	SignalRecordsEncrypted      = capitan.NewSignal("shroud.fields.encrypted", "Record fields encrypted")
	SignalRecordsDecrypted      = capitan.NewSignal("shroud.fields.decrypted", "Record fields decrypted")
	SignalFieldFallback         = capitan.NewSignal("shroud.fields.fallback", "Field left in legacy fallback form")
)

// Keys for typed event data.
var (
	KeyContentType    = capitan.NewStringKey("content_type")
	KeyTypeName       = capitan.NewStringKey("type_name")
	KeySize           = capitan.NewIntKey("size")
	KeyDuration       = capitan.NewDurationKey("duration")
	KeyError          = capitan.NewErrorKey("error")
	KeyEncryptedCount = capitan.NewIntKey("encrypted_count")
	KeyDecryptedCount = capitan.NewIntKey("decrypted_count")
	KeyRecordCount    = capitan.NewIntKey("record_count")
	KeyField          = capitan.NewStringKey("field")
	KeyFieldCount     = capitan.NewIntKey("field_count")
	KeyFallbackKind   = capitan.NewStringKey("fallback_kind")
	KeyFingerprint    = capitan.NewStringKey("key_fingerprint")
	KeyMode           = capitan.NewStringKey("mode")
)

func emitProcessorCreated(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalProcessorCreated,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

func emitSendStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalSendStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

func emitSendComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, encrypted int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyEncryptedCount.Field(encrypted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalSendComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalSendComplete, fields...)
	}
}

func emitReceiveStart(ctx context.Context, contentType, typeName string) {
	capitan.Emit(ctx, SignalReceiveStart,
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
	)
}

func emitReceiveComplete(ctx context.Context, contentType, typeName string, size int, duration time.Duration, decrypted int, err error) {
	fields := []capitan.Field{
		KeyContentType.Field(contentType),
		KeyTypeName.Field(typeName),
		KeySize.Field(size),
		KeyDuration.Field(duration),
		KeyDecryptedCount.Field(decrypted),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalReceiveComplete, fields...)
	} else {
		capitan.Emit(ctx, SignalReceiveComplete, fields...)
	}
}

func emitFieldEncryptorCreated(ctx context.Context, fingerprint string, fields int, mode Mode) {
	capitan.Emit(ctx, SignalFieldEncryptorCreated,
		KeyFingerprint.Field(fingerprint),
		KeyFieldCount.Field(fields),
		KeyMode.Field(mode.String()),
	)
}

func emitRecordsEncrypted(ctx context.Context, fingerprint string, records, encrypted int) {
	capitan.Emit(ctx, SignalRecordsEncrypted,
		KeyFingerprint.Field(fingerprint),
		KeyRecordCount.Field(records),
		KeyEncryptedCount.Field(encrypted),
	)
}

func emitRecordsDecrypted(ctx context.Context, fingerprint string, records, decrypted int, duration time.Duration, err error) {
	fields := []capitan.Field{
		KeyFingerprint.Field(fingerprint),
		KeyRecordCount.Field(records),
		KeyDecryptedCount.Field(decrypted),
		KeyDuration.Field(duration),
	}
	if err != nil {
		fields = append(fields, KeyError.Field(err))
		capitan.Error(ctx, SignalRecordsDecrypted, fields...)
	} else {
		capitan.Emit(ctx, SignalRecordsDecrypted, fields...)
	}
}

// emitFieldFallback records a compat-mode substitution. The kind is the
// sentinel message so listeners can tell encoding from padding failures.
func emitFieldFallback(ctx context.Context, field string, err error) {
	kind := "unknown"
	switch {
	case errors.Is(err, ErrInvalidEncoding):
		kind = ErrInvalidEncoding.Error()
	case errors.Is(err, ErrPaddingMismatch):
		kind = ErrPaddingMismatch.Error()
	}

	capitan.Error(ctx, SignalFieldFallback,
		KeyField.Field(field),
		KeyFallbackKind.Field(kind),
		KeyError.Field(err),
	)
}
