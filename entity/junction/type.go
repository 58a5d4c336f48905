package junction

import (
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

// 依赖倒置，表达junction对信号灯实现的接口需求

// 给交通参与者提供的信控读取接口
type ITrafficLightGetter interface {
	Plan() *signal.Plan     // 当前信号方案
	Step() int32            // 当前相位
	RemainingTime() float64 // 当前相位剩余时长
	Ok() bool               // 当前信控开关情况
}

// 信号灯接口
type ITrafficLight interface {
	ITrafficLightGetter
	Prepare()          // 准备阶段，处理各种写入buffer，将信控结果写入到lane中
	Update(dt float64) // 更新阶段，更新信控结果

	Set(plan *signal.Plan) error                  // 修改信号方案（校验通过后生效）
	Unset()                                       // 删除信号方案（全绿）
	SetPhase(offset int32, remainingTime float64) // 修改信控相位到指定值
	SetOk(ok bool)                                // 设置信控开关情况（true信控工作|false信控失效-全绿）
}
