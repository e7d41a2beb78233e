package main

import (
	"flag"
	"os"

	bridge "github.com/dep2p/go-bridge"
)

// 环境变量
const (
	envPrefix     = "BRIDGE_"
	envConfigFile = "CONFIG"
	envPreset     = "PRESET"
	envAddr       = "ADDR"
)

// buildOptions 构建总线选项
//
// 配置优先级（从高到低）：
//  1. 命令行参数
//  2. 环境变量（BRIDGE_* 前缀）
//  3. 预设默认值
//
// 指定配置文件时忽略预设。
func buildOptions() ([]bridge.Option, error) {
	applyEnvOverrides()

	var opts []bridge.Option
	if *configFile != "" {
		opts = append(opts, bridge.WithConfigFile(*configFile))
	} else {
		opts = append(opts, bridge.WithPreset(*preset))
	}
	return opts, nil
}

// applyEnvOverrides 用环境变量填充未在命令行显式设置的参数
func applyEnvOverrides() {
	if v := os.Getenv(envPrefix + envConfigFile); v != "" && !isFlagSet("config") {
		*configFile = v
	}
	if v := os.Getenv(envPrefix + envPreset); v != "" && !isFlagSet("preset") {
		*preset = v
	}
	if v := os.Getenv(envPrefix + envAddr); v != "" && !isFlagSet("addr") {
		*addr = v
	}
}

// isFlagSet 检查命令行参数是否显式设置
func isFlagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}
