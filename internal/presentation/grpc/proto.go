package grpc

// proto.go defines the gRPC server interface of loanservicing.v1.LoanServicing.
// Messages are the application DTOs carried by the JSON codec, so clients
// call with the "json" content subtype.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/loanservicing/internal/application/dto"
)

const serviceName = "loanservicing.v1.LoanServicing"

// LoanServicingServer is the server API for LoanServicing.
type LoanServicingServer interface {
	BoardLoan(context.Context, *dto.BoardLoanRequest) (*dto.LoanResponse, error)
	ApplyTransaction(context.Context, *dto.ApplyTransactionRequest) (*dto.TransactionResponse, error)
	AddCharge(context.Context, *dto.AddChargeRequest) (*dto.ChargeResponse, error)
	ReprocessLoan(context.Context, *dto.ReprocessLoanRequest) (*dto.ReprocessLoanResponse, error)
	GetSchedule(context.Context, *dto.GetScheduleRequest) (*dto.ScheduleResponse, error)
	mustEmbedUnimplementedLoanServicingServer()
}

// UnimplementedLoanServicingServer provides forward-compatible default implementations.
type UnimplementedLoanServicingServer struct{}

func (UnimplementedLoanServicingServer) BoardLoan(context.Context, *dto.BoardLoanRequest) (*dto.LoanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method BoardLoan not implemented")
}
func (UnimplementedLoanServicingServer) ApplyTransaction(context.Context, *dto.ApplyTransactionRequest) (*dto.TransactionResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ApplyTransaction not implemented")
}
func (UnimplementedLoanServicingServer) AddCharge(context.Context, *dto.AddChargeRequest) (*dto.ChargeResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AddCharge not implemented")
}
func (UnimplementedLoanServicingServer) ReprocessLoan(context.Context, *dto.ReprocessLoanRequest) (*dto.ReprocessLoanResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ReprocessLoan not implemented")
}
func (UnimplementedLoanServicingServer) GetSchedule(context.Context, *dto.GetScheduleRequest) (*dto.ScheduleResponse, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetSchedule not implemented")
}
func (UnimplementedLoanServicingServer) mustEmbedUnimplementedLoanServicingServer() {}

// RegisterLoanServicingServer registers the LoanServicingServer with the gRPC server.
func RegisterLoanServicingServer(s grpclib.ServiceRegistrar, srv LoanServicingServer) {
	s.RegisterService(&loanServicingServiceDesc, srv)
}

var loanServicingServiceDesc = grpclib.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*LoanServicingServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "BoardLoan", Handler: unaryHandler("BoardLoan", LoanServicingServer.BoardLoan)},
		{MethodName: "ApplyTransaction", Handler: unaryHandler("ApplyTransaction", LoanServicingServer.ApplyTransaction)},
		{MethodName: "AddCharge", Handler: unaryHandler("AddCharge", LoanServicingServer.AddCharge)},
		{MethodName: "ReprocessLoan", Handler: unaryHandler("ReprocessLoan", LoanServicingServer.ReprocessLoan)},
		{MethodName: "GetSchedule", Handler: unaryHandler("GetSchedule", LoanServicingServer.GetSchedule)},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "loanservicing/v1/loan_servicing.proto",
}

// unaryHandler adapts a typed server method to the grpc method handler
// signature, running it through the interceptor chain when one is set.
func unaryHandler[Req, Resp any](
	method string,
	call func(LoanServicingServer, context.Context, *Req) (*Resp, error),
) func(any, context.Context, func(any) error, grpclib.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + serviceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(LoanServicingServer), ctx, in)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(LoanServicingServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
