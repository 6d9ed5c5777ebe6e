package grpcapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Leganyst/cleaning-calendar/internal/calendar"
	"github.com/Leganyst/cleaning-calendar/internal/service"
)

// BookingService — то, что gRPC-слою нужно от сервиса бронирований.
type BookingService interface {
	Submit(ctx context.Context, tmpl calendar.Template) (*service.SubmitResult, error)
	Preview(ctx context.Context, tmpl calendar.Template) (*service.Preview, error)
	Delete(ctx context.Context, key calendar.SlotKey) (*calendar.Record, error)
	List(ctx context.Context, from, to calendar.Date) ([]calendar.Record, error)
}

type Server struct {
	svc    BookingService
	logger *zap.Logger
}

func NewServer(svc BookingService, logger *zap.Logger) *Server {
	return &Server{svc: svc, logger: logger}
}

// NewGRPCServer собирает grpc.Server с календарём, health и reflection.
func NewGRPCServer(srv *Server, logger *zap.Logger) (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(LoggingInterceptor(logger)))

	RegisterBookingServiceServer(s, srv)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, hs)

	reflection.Register(s)
	return s, hs
}

func (s *Server) Submit(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tmpl, err := templateFrom(in)
	if err != nil {
		return nil, mapError(err)
	}

	res, err := s.svc.Submit(ctx, tmpl)
	if err != nil {
		if res == nil {
			return nil, mapError(err)
		}
		// частичный результат уходит в details статуса
		return nil, withReply(mapError(err), replyFor(res))
	}
	return toStruct(replyFor(res))
}

func replyFor(res *service.SubmitResult) submitReply {
	return submitReply{
		SubmissionID: res.SubmissionID,
		Action:       res.Action,
		Created:      res.Created,
		Updated:      res.Updated,
		Rejected:     res.Rejected,
		Warning:      res.Warning,
		Bookings:     res.View,
	}
}

func (s *Server) Preview(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	tmpl, err := templateFrom(in)
	if err != nil {
		return nil, mapError(err)
	}

	p, err := s.svc.Preview(ctx, tmpl)
	if err != nil {
		return nil, mapError(err)
	}
	reply := previewReply{
		Action:   p.Action,
		ToCreate: p.ToCreate,
		Rejected: p.Rejected,
		Warning:  p.Warning,
	}
	if p.ToUpdate != nil {
		reply.ToUpdate = &calendar.Record{ID: p.ToUpdate.ID, Template: p.ToUpdate.Template}
	}
	return toStruct(reply)
}

func (s *Server) Delete(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	date, err := dateField(in, "date")
	if err != nil {
		return nil, mapError(err)
	}
	slot, err := calendar.ParseTimeSlot(stringField(in, "timeSlot"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	rec, err := s.svc.Delete(ctx, calendar.SlotKey{Date: date, Slot: slot})
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(deleteReply{Deleted: rec != nil, Booking: rec})
}

func (s *Server) List(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	from, err := dateField(in, "from")
	if err != nil {
		return nil, mapError(err)
	}
	to, err := dateField(in, "to")
	if err != nil {
		return nil, mapError(err)
	}

	records, err := s.svc.List(ctx, from, to)
	if err != nil {
		return nil, mapError(err)
	}
	return toStruct(listReply{Bookings: records})
}

// ===== Сообщения =====

type submitReply struct {
	SubmissionID string             `json:"submissionId"`
	Action       service.Action     `json:"action"`
	Created      []calendar.Record  `json:"created"`
	Updated      *calendar.Record   `json:"updated,omitempty"`
	Rejected     []calendar.SlotKey `json:"rejected"`
	Warning      string             `json:"warning,omitempty"`
	Bookings     []calendar.Record  `json:"bookings"`
}

type previewReply struct {
	Action   service.Action      `json:"action"`
	ToCreate []calendar.Template `json:"toCreate"`
	ToUpdate *calendar.Record    `json:"toUpdate,omitempty"`
	Rejected []calendar.SlotKey  `json:"rejected"`
	Warning  string              `json:"warning,omitempty"`
}

type deleteReply struct {
	Deleted bool             `json:"deleted"`
	Booking *calendar.Record `json:"booking,omitempty"`
}

type listReply struct {
	Bookings []calendar.Record `json:"bookings"`
}

func stringField(in *structpb.Struct, name string) string {
	return in.GetFields()[name].GetStringValue()
}

func dateField(in *structpb.Struct, name string) (calendar.Date, error) {
	d, err := calendar.ParseDate(stringField(in, name))
	if err != nil {
		return calendar.Date{}, &calendar.TemplateError{Field: name, Reason: "expected YYYY-MM-DD"}
	}
	return d, nil
}

func templateFrom(in *structpb.Struct) (calendar.Template, error) {
	d, err := dateField(in, "date")
	if err != nil {
		return calendar.Template{}, err
	}
	return calendar.Template{
		Date:        d,
		TimeSlot:    calendar.TimeSlot(stringField(in, "timeSlot")),
		Description: stringField(in, "description"),
		ClientName:  stringField(in, "clientName"),
		Address:     stringField(in, "address"),
		Recurrence:  calendar.Recurrence(stringField(in, "recurrence")),
	}, nil
}

// toStruct проводит ответ через JSON, чтобы поля совпадали с HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	out := &structpb.Struct{}
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return out, nil
}

// withReply прикладывает ответ к статусу ошибки. Если ответ не
// кодируется, остаётся голая ошибка.
func withReply(err error, reply any) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	detail, encErr := toStruct(reply)
	if encErr != nil {
		return err
	}
	withDetail, encErr := st.WithDetails(detail)
	if encErr != nil {
		return err
	}
	return withDetail.Err()
}

// mapError переводит ошибки календаря в коды gRPC.
func mapError(err error) error {
	var conflict *calendar.ConflictError
	switch {
	case errors.Is(err, calendar.ErrInvalidTemplate):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.As(err, &conflict):
		return status.Error(codes.AlreadyExists, conflict.Error())
	case errors.Is(err, calendar.ErrStorageFailure):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, calendar.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("internal error: %v", err))
	}
}

// LoggingInterceptor пишет в лог каждый унарный вызов.
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("code", code.String()),
			zap.Duration("latency", time.Since(start)),
		}
		switch code {
		case codes.OK:
			logger.Info("grpc call done", fields...)
		case codes.Internal, codes.Unavailable:
			logger.Error("grpc call failed", append(fields, zap.Error(err))...)
		default:
			logger.Warn("grpc client error", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
