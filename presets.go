package bridge

import "github.com/dep2p/go-bridge/config"

// 预设名称
const (
	// PresetMinimal 最小配置
	PresetMinimal = config.PresetMinimal

	// PresetDesktop 桌面配置（默认）
	PresetDesktop = config.PresetDesktop

	// PresetServer 服务端配置
	PresetServer = config.PresetServer
)
