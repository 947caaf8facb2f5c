// Package grpcapi exposes the scheduling operations as the gRPC service
// medwise.v1.ScheduleService.
package grpcapi

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"medwise-api/internal/middleware"
	"medwise-api/internal/service"
)

const ServiceName = "medwise.v1.ScheduleService"

const (
	MethodRegister          = "/" + ServiceName + "/Register"
	MethodLogin             = "/" + ServiceName + "/Login"
	MethodRefresh           = "/" + ServiceName + "/Refresh"
	MethodListAppointments  = "/" + ServiceName + "/ListAppointments"
	MethodCreateAppointment = "/" + ServiceName + "/CreateAppointment"
	MethodUpdateAppointment = "/" + ServiceName + "/UpdateAppointment"
	MethodDeleteAppointment = "/" + ServiceName + "/DeleteAppointment"
	MethodListDoctors       = "/" + ServiceName + "/ListDoctors"
)

// PublicMethods run without an access token and are rate limited.
var PublicMethods = []string{MethodRegister, MethodLogin, MethodRefresh}

// ScheduleServer is the method set registered under ServiceName.
type ScheduleServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	Refresh(context.Context, *RefreshRequest) (*AuthResponse, error)
	ListAppointments(context.Context, *ListAppointmentsRequest) (*ListAppointmentsResponse, error)
	CreateAppointment(context.Context, *CreateAppointmentRequest) (*CreateAppointmentResponse, error)
	UpdateAppointment(context.Context, *UpdateAppointmentRequest) (*Empty, error)
	DeleteAppointment(context.Context, *DeleteAppointmentRequest) (*Empty, error)
	ListDoctors(context.Context, *Empty) (*ListDoctorsResponse, error)
}

// Server adapts the services to gRPC.
type Server struct {
	auth         *service.Authenticator
	appointments *service.Appointments
	logger       *slog.Logger
}

func NewServer(a *service.Authenticator, appts *service.Appointments, log *slog.Logger) *Server {
	return &Server{auth: a, appointments: appts, logger: log.With("module", "grpc_server")}
}

// NewGRPCServer builds a grpc.Server with the codec, panic recovery, rate
// limiting on the public methods and token auth on the rest. limiter may be nil.
func NewGRPCServer(s *Server, limiter *middleware.RateLimiter, opts ...grpc.ServerOption) *grpc.Server {
	chain := []grpc.UnaryServerInterceptor{middleware.Recover(s.logger)}
	if limiter != nil {
		chain = append(chain, middleware.RateLimit(limiter, PublicMethods...))
	}
	chain = append(chain, middleware.Auth(s.auth, PublicMethods...))

	opts = append([]grpc.ServerOption{
		grpc.ForceServerCodec(Codec{}),
		grpc.ChainUnaryInterceptor(chain...),
	}, opts...)
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

var kindCode = map[service.Kind]codes.Code{
	service.KindInvalid:         codes.InvalidArgument,
	service.KindUnauthenticated: codes.Unauthenticated,
	service.KindForbidden:       codes.PermissionDenied,
	service.KindNotFound:        codes.NotFound,
	service.KindConflict:        codes.AlreadyExists,
}

func (s *Server) status(ctx context.Context, method string, err error) error {
	if kind, msg, ok := service.KindOf(err); ok {
		if code, known := kindCode[kind]; known {
			return status.Error(code, msg)
		}
	}
	id, _ := middleware.IdentityFrom(ctx)
	s.logger.Error("rpc failed", "method", method, "user_id", id.UserID, "error", err)
	return status.Error(codes.Internal, service.MsgInternal)
}

func session(s *service.Session) *AuthResponse {
	return &AuthResponse{User: s.User, AccessToken: s.AccessToken, RefreshToken: s.RefreshToken, ExpiresAt: s.ExpiresAt}
}

func (s *Server) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	sess, err := s.auth.SignIn(ctx, service.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
		Type:     service.AuthRegister,
	})
	if err != nil {
		return nil, s.status(ctx, "Register", err)
	}
	return session(sess), nil
}

func (s *Server) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	sess, err := s.auth.SignIn(ctx, service.Credentials{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Type:     service.AuthLogin,
	})
	if err != nil {
		return nil, s.status(ctx, "Login", err)
	}
	return session(sess), nil
}

func (s *Server) Refresh(ctx context.Context, req *RefreshRequest) (*AuthResponse, error) {
	sess, err := s.auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, s.status(ctx, "Refresh", err)
	}
	return session(sess), nil
}

func (s *Server) ListAppointments(ctx context.Context, req *ListAppointmentsRequest) (*ListAppointmentsResponse, error) {
	id, _ := middleware.IdentityFrom(ctx)
	page, err := s.appointments.List(ctx, id, service.ListQuery{
		Q:        req.Query,
		Sort:     req.Sort,
		Order:    req.Order,
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		return nil, s.status(ctx, "ListAppointments", err)
	}
	return &ListAppointmentsResponse{Appointments: page.Items, Total: page.Total}, nil
}

func (s *Server) CreateAppointment(ctx context.Context, req *CreateAppointmentRequest) (*CreateAppointmentResponse, error) {
	id, _ := middleware.IdentityFrom(ctx)
	apptID, err := s.appointments.Create(ctx, id, service.AppointmentInput{
		PatientName:    req.PatientName,
		PatientAge:     req.PatientAge,
		PatientGender:  req.PatientGender,
		ReasonForVisit: req.ReasonForVisit,
		DoctorID:       req.DoctorID,
		Date:           req.Date,
		Type:           req.Type,
		Notes:          req.Notes,
	})
	if err != nil {
		return nil, s.status(ctx, "CreateAppointment", err)
	}
	return &CreateAppointmentResponse{ID: apptID}, nil
}

func (s *Server) UpdateAppointment(ctx context.Context, req *UpdateAppointmentRequest) (*Empty, error) {
	id, _ := middleware.IdentityFrom(ctx)
	if err := s.appointments.Update(ctx, id, req.ID, req.Patch); err != nil {
		return nil, s.status(ctx, "UpdateAppointment", err)
	}
	return &Empty{}, nil
}

func (s *Server) DeleteAppointment(ctx context.Context, req *DeleteAppointmentRequest) (*Empty, error) {
	id, _ := middleware.IdentityFrom(ctx)
	if err := s.appointments.Delete(ctx, id, req.ID); err != nil {
		return nil, s.status(ctx, "DeleteAppointment", err)
	}
	return &Empty{}, nil
}

func (s *Server) ListDoctors(ctx context.Context, _ *Empty) (*ListDoctorsResponse, error) {
	id, _ := middleware.IdentityFrom(ctx)
	docs, err := s.appointments.Doctors(ctx, id)
	if err != nil {
		return nil, s.status(ctx, "ListDoctors", err)
	}
	return &ListDoctorsResponse{Doctors: docs}, nil
}

// unary adapts a typed method to grpc.MethodDesc.
func unary[Req any, PReq interface {
	*Req
	Message
}, Resp Message](name string, call func(*Server, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	full := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, icpt grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(*Server)
			if icpt == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: full}
			return icpt(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(PReq))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ScheduleServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", (*Server).Register),
		unary("Login", (*Server).Login),
		unary("Refresh", (*Server).Refresh),
		unary("ListAppointments", (*Server).ListAppointments),
		unary("CreateAppointment", (*Server).CreateAppointment),
		unary("UpdateAppointment", (*Server).UpdateAppointment),
		unary("DeleteAppointment", (*Server).DeleteAppointment),
		unary("ListDoctors", (*Server).ListDoctors),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "medwise/v1/schedule.proto",
}
