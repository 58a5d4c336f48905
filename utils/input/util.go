package input

import (
	"fmt"
	"os"

	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
)

// checkMapValid 检查地图数据有效性
// 功能：验证地图内部引用的完整性
// 参数：m-地图数据
// 返回：nil表示有效，否则返回描述第一个问题的错误
// 算法说明：
// 1. 收集所有车道ID
// 2. 检查道路与路口引用的车道是否存在
// 3. 检查每条车道只被一个道路或路口引用
// 4. 检查车道连接关系引用的车道是否存在
// 说明：在实体初始化之前发现坏数据，避免初始化过程中panic
func checkMapValid(m *mapv2.Map) error {
	laneIDs := make(map[int32]struct{}, len(m.Lanes))
	for _, l := range m.Lanes {
		if _, ok := laneIDs[l.Id]; ok {
			return fmt.Errorf("duplicated lane id %d", l.Id)
		}
		laneIDs[l.Id] = struct{}{}
	}
	laneParents := make(map[int32]int32, len(m.Lanes))
	for _, r := range m.Roads {
		for _, laneID := range r.LaneIds {
			if _, ok := laneIDs[laneID]; !ok {
				return fmt.Errorf("road %d references unknown lane %d", r.Id, laneID)
			}
			if parent, ok := laneParents[laneID]; ok {
				return fmt.Errorf("lane %d belongs to both %d and %d", laneID, parent, r.Id)
			}
			laneParents[laneID] = r.Id
		}
	}
	for _, j := range m.Junctions {
		for _, laneID := range j.LaneIds {
			if _, ok := laneIDs[laneID]; !ok {
				return fmt.Errorf("junction %d references unknown lane %d", j.Id, laneID)
			}
			if parent, ok := laneParents[laneID]; ok {
				return fmt.Errorf("lane %d belongs to both %d and %d", laneID, parent, j.Id)
			}
			laneParents[laneID] = j.Id
		}
	}
	for _, l := range m.Lanes {
		for _, conn := range l.Predecessors {
			if _, ok := laneIDs[conn.Id]; !ok {
				return fmt.Errorf("lane %d references unknown predecessor %d", l.Id, conn.Id)
			}
		}
		for _, conn := range l.Successors {
			if _, ok := laneIDs[conn.Id]; !ok {
				return fmt.Errorf("lane %d references unknown successor %d", l.Id, conn.Id)
			}
		}
		for _, ov := range l.Overlaps {
			if _, ok := laneIDs[ov.Other.LaneId]; !ok {
				return fmt.Errorf("lane %d references unknown overlap lane %d", l.Id, ov.Other.LaneId)
			}
		}
	}
	return nil
}

// preCheckCache 预检查缓存目录
// 功能：验证输入缓存目录的有效性，决定是否启用缓存功能
// 参数：cacheDir-缓存目录路径
// 返回：true表示启用缓存，false表示禁用缓存
// 算法说明：
// 1. 检查缓存目录是否为空：空则禁用缓存
// 2. 检查目录是否存在：使用os.Stat检查路径状态
// 3. 验证是否为目录：确保路径指向的是目录而不是文件
// 4. 记录日志：根据检查结果输出相应的日志信息
// 说明：确保缓存功能的正确配置，避免因无效路径导致的错误
func preCheckCache(cacheDir string) bool {
	if cacheDir == "" {
		log.Info("disable input cache")
		return false
	} else {
		if stat, err := os.Stat(cacheDir); err == nil && stat.IsDir() {
			// 文件夹存在
			log.Infof("enable input cache at %s", cacheDir)
			return true
		} else {
			log.Errorf("disable input cache because invalid dir %s (not exist or file)", cacheDir)
			return false
		}
	}
}
