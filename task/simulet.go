package task

import (
	"flag"
	"sync"
)

const (
	SelfName = "signal" // 本程序在模拟任务集群中的名字
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 功能：在每个仿真步骤开始时进行准备工作
// 算法说明：
// 1. 更新时钟：增加内部步数并计算当前时间
// 2. 心跳日志：定期输出系统状态信息
// 3. 路口准备：把信控结果写入车道
func (ctx *Context) prepare() {
	log.Debugf("step %d complete, +1", ctx.clock.InternalStep)
	ctx.clock.InternalStep++
	log.Debugf("step %d complete, +1 ok", ctx.clock.InternalStep)
	ctx.clock.T = float64(ctx.clock.InternalStep) * ctx.clock.DT

	if ctx.clock.InternalStep%int32(*heartBeatInterval) == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f)",
			ctx.clock.InternalStep,
			hour, minute, second,
		)
	}

	// Prepare
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ctx.junctionManager.Prepare() // junction
	}()
	wg.Wait()
}

// update 更新阶段，每步执行一次
// 功能：在每个仿真步骤中执行主要的信控逻辑
// 说明：更新路口信号灯状态，推进相位切换
func (ctx *Context) update() {
	ctx.junctionManager.Update(ctx.clock.DT) // junction
}

// Run 运行
func (ctx *Context) Run() {
	// 初始化
	ctx.Init()
	// init syncer
	ctx.sidecar.Step(false)
	for {
		ctx.prepare()
		// 通知准备阶段完成
		log.Debugf("step %d: prepare complete and call NotifyStepReady", ctx.clock.InternalStep)
		ctx.sidecar.NotifyStepReady()
		log.Debugf("step %d: NotifyStepReady complete", ctx.clock.InternalStep)
		ctx.update()
		log.Debugf("step %d: update complete", ctx.clock.InternalStep)
		close := false
		if ctx.clock.InternalStep+1 >= ctx.clock.END_STEP {
			close = ctx.sidecar.Step(true)
		} else {
			close = ctx.sidecar.Step(false)
		}
		if close || ctx.closed.Load() {
			break
		}
	}
	log.Infof("engine complete")
	ctx.Close()
}
