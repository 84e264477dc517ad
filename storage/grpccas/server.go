package grpccas

import (
	"context"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/smolcert/cidutil"
	"xdao.co/smolcert/storage"
)

var discard = func() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}()

// Server exposes a storage.CertificateStore over gRPC.
type Server struct {
	UnimplementedStoreServer

	Store *storage.CertificateStore
	Log   *logrus.Logger
}

var _ StoreServer = (*Server)(nil)

func (s *Server) logger() *logrus.Logger {
	if s.Log == nil {
		return discard
	}
	return s.Log
}

func (s *Server) ready() error {
	if s == nil || s.Store == nil || s.Store.CAS == nil {
		return status.Error(codes.FailedPrecondition, "missing certificate store")
	}
	return nil
}

func (s *Server) Put(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	b := in.GetValue()
	expected, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	id, err := s.Store.Put(b)
	if err != nil {
		s.logger().WithError(err).WithField("size", len(b)).Warn("put rejected")
		return nil, toStatus(err)
	}
	if id != expected {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	s.logger().WithFields(logrus.Fields{"cid": id.String(), "size": len(b)}).Info("certificate stored")
	return wrapperspb.String(id.String()), nil
}

func (s *Server) Get(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	id, err := decodeCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	b, err := s.Store.Get(id)
	if err != nil {
		if !storage.IsNotFound(err) {
			s.logger().WithError(err).WithField("cid", id.String()).Error("get failed")
		}
		return nil, toStatus(err)
	}
	got, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	if got != id {
		return nil, status.Error(codes.DataLoss, storage.ErrCIDMismatch.Error())
	}
	return wrapperspb.Bytes(b), nil
}

func (s *Server) Has(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	id, err := decodeCID(in.GetValue())
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bool(s.Store.Has(id)), nil
}

func (s *Server) Check(ctx context.Context, in *wrapperspb.BytesValue) (*wrapperspb.StringValue, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	b := in.GetValue()
	if err := s.Store.Check(b); err != nil {
		return nil, toStatus(err)
	}
	id, err := cidutil.CIDv1RawSHA256CID(b)
	if err != nil {
		return nil, status.Error(codes.Internal, "cid computation failed")
	}
	return wrapperspb.String(id.String()), nil
}

func decodeCID(s string) (cid.Cid, error) {
	id, err := cid.Decode(s)
	if err != nil || !id.Defined() {
		return cid.Undef, status.Error(codes.InvalidArgument, storage.ErrInvalidCID.Error())
	}
	return id, nil
}
