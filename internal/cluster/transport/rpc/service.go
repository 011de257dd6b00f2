package rpc

import (
	"google.golang.org/grpc"
)

const (
	serviceName    = "cluster.ClusterRpcService"
	methodName     = "HandlePluginMsgs"
	fullMethodName = "/" + serviceName + "/" + methodName
)

// ClusterRpcServiceServer 对应 cluster.proto 中的 ClusterRpcService
type ClusterRpcServiceServer interface {
	HandlePluginMsgs(stream grpc.ServerStream) error
}

func handlePluginMsgsHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ClusterRpcServiceServer).HandlePluginMsgs(stream)
}

// serviceDesc 手写的服务描述，帧编解码走 cluster codec
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ClusterRpcServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    methodName,
			Handler:       handlePluginMsgsHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "cluster.proto",
}

// RegisterClusterRpcServiceServer 注册到已有的 grpc.Server
func RegisterClusterRpcServiceServer(s grpc.ServiceRegistrar, srv ClusterRpcServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}
