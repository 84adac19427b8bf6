// Package biz 提供个人助手的检索与生成编排逻辑。
//
// 组件划分：
//   - Retriever: 向量检索，阈值过滤与排序，按角色预过滤
//   - Generator: 组装提示词，调用模型或降级合成，后处理回答
//   - AnswerCache: 技术类回答缓存，按索引版本失效
//   - Router: 分类、检索、代码增强、生成并附加响应元数据
//
// 所有依赖通过 Engine 显式注入，包内没有全局状态。
package biz
