package input

import (
	"context"

	"git.fiblab.net/general/common/v2/cache"
	"git.fiblab.net/general/common/v2/mongoutil"
	"git.fiblab.net/general/common/v2/protoutil"
	mapv2 "git.fiblab.net/sim/protos/v2/go/city/map/v2"
	"github.com/tsinghua-fib-lab/signalet-oss/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/protobuf/proto"
)

// Input 输入数据
// 功能：存储信控计算所需的所有输入数据
// 说明：地图数据支持从文件或数据库加载
type Input struct {
	Map *mapv2.Map
}

// Init 下载数据
// 功能：根据配置初始化并加载所有输入数据
// 参数：config-配置对象，cacheDir-缓存目录
// 返回：加载完成的输入数据指针
// 算法说明：
// 1. 缓存检查：验证缓存目录的有效性
// 2. 数据库连接：如果配置了MongoDB则建立连接
// 3. 地图数据加载：
//   - 文件加载：从指定文件加载地图
//   - 数据库加载：从MongoDB加载地图
//
// 4. 数据验证：检查地图内部引用的完整性
// 说明：这是数据加载的主入口，确保所需的所有数据都正确加载
func Init(config config.Config, cacheDir string) (res *Input) {
	useCache := preCheckCache(cacheDir)
	if !useCache {
		cacheDir = ""
	}

	var client *mongo.Client
	if config.Input.URI != "" {
		client = mongoutil.NewClient(config.Input.URI)
		defer client.Disconnect(context.Background())
	}

	res = &Input{}

	if config.Input.Map.File != "" {
		var m mapv2.Map
		if err := protoutil.UnmarshalFromFile(&m, config.Input.Map.File); err != nil {
			log.Panicf("failed to load map from file: %v", err)
		}
		res.Map = &m
	} else if len(config.Input.Map.Files) > 0 {
		log.Panicf("multiple map files are not supported")
	} else {
		res.Map = mustLoad[mapv2.Map](client, config.Input.Map, cacheDir, nil, nil)
	}

	if err := checkMapValid(res.Map); err != nil {
		log.Panicf("invalid map data: %v", err)
	}

	return
}

// mustLoad 必须加载数据（泛型函数）
// 功能：从MongoDB或缓存中加载数据，支持数据迁移和验证
// 参数：client-MongoDB客户端，inputPath-输入路径配置，cacheDir-缓存目录，classNameMapper-类名映射器，handler-数据处理函数，opts-查询选项
// 返回：加载的数据对象
// 算法说明：
// 1. 获取MongoDB集合：根据输入路径配置获取集合
// 2. 定义下载函数：如果不需要仅缓存则定义下载逻辑
// 3. 缓存加载：使用缓存机制加载数据
// 4. 错误处理：如果加载失败则panic
// 说明：提供统一的数据加载接口，支持缓存和数据库两种数据源
func mustLoad[T any, PT interface {
	proto.Message
	*T
}](
	client *mongo.Client,
	inputPath config.InputPath,
	cacheDir string,
	classNameMapper func(string) string,
	handler func(className string, pb any, rawBson bson.Raw) error,
	opts ...*options.FindOptions,
) (res PT) {
	coll := mongoutil.GetMongoColl(client, inputPath)
	var downloadFunc func() PT
	var err error
	if !inputPath.OnlyCache {
		downloadFunc = func() PT {
			pb, errs := mongoutil.DownloadPbFromMongo[T, PT](context.Background(), coll, classNameMapper, handler, opts...)
			if len(errs) > 0 {
				for _, err := range errs {
					log.Errorf("failed to download: %v", err)
				}
				log.Panicln("failed to download")
			}
			return pb
		}
	}
	log.Infof("start fetching from %s.%s", inputPath.DB, inputPath.Col)
	res, err = cache.LoadWithCache(cacheDir, inputPath, downloadFunc)
	if err != nil {
		log.Panicf("failed to load with cache: %v", err)
	}
	log.Infof("finish fetching from %s.%s", inputPath.DB, inputPath.Col)
	return
}
