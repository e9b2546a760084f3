// Package metrics 定义进程级 Prometheus 指标（promauto 自动注册到默认 Registry）。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gcnrec"

var (
	// GraphNodes 是最近一次构图的节点数，按 kind（user / item）区分
	GraphNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "graph_nodes",
			Help:      "Number of nodes in the last built interaction graph",
		},
		[]string{"kind"},
	)

	// GraphEdges 是最近一次构图的去重边数
	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "graph_edges",
		Help:      "Number of distinct user-item edges in the last built graph",
	})

	GraphBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "graph_build_duration_seconds",
		Help:      "Time spent loading interactions and building the graph",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})

	// TrainEpochLoss 是最近一个 epoch 的平均 BPR loss
	TrainEpochLoss = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "train_epoch_loss",
		Help:      "Mean BPR loss of the most recent training epoch",
	})

	TrainEpochs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "train_epochs_total",
		Help:      "Total number of completed training epochs",
	})

	// TrainDroppedTriplets 是负采样重试耗尽而被丢弃的三元组数
	TrainDroppedTriplets = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "train_dropped_triplets_total",
		Help:      "Triplets dropped because no valid negative item was found",
	})

	// TrainRuns 按结果（ok / no_data / unstable / canceled / error）统计训练次数
	TrainRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "train_runs_total",
			Help:      "Training runs by outcome",
		},
		[]string{"status"},
	)

	TrainDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "train_duration_seconds",
		Help:      "Wall time of a full training run",
		Buckets:   []float64{1, 5, 10, 30, 60, 300, 900, 1800, 3600},
	})

	// ModelLoaded 为 1 表示推理引擎持有可用模型
	ModelLoaded = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "model_loaded",
		Help:      "Whether the inference engine currently serves a model (1) or not (0)",
	})

	// RecommendRequests 按路由（lightgcn / fallback）统计推荐请求
	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommend_requests_total",
			Help:      "Recommendation requests by serving route",
		},
		[]string{"route"},
	)

	RecommendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommend_duration_seconds",
			Help:      "Latency of recommendation requests by serving route",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"route"},
	)

	// HybridFallbacks 按原因统计降级到冷启动推荐的次数
	HybridFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hybrid_fallbacks_total",
			Help:      "Hybrid selector fallbacks to the mood-based recommender by reason",
		},
		[]string{"reason"},
	)
)
