// Package flatbuffers builds and reads flatbuffers tables in place.
//
// A Builder writes a buffer back to front: children are finished before the
// parents that reference them, and every object is addressed by its
// TailOffsetT, the distance from the end of the buffer, which survives the
// buffer being grown. A Table reads a finished buffer front to back without
// decoding it: binding is O(1) and every field access checks bounds first,
// so a buffer from an untrusted peer can only produce an error.
//
// There are three offset types:
//
//	TailOffsetT  builder side, distance from the tail
//	UOffsetT     stored in the buffer, forward relative to where it is stored
//	Position     reader side, absolute index into the finished bytes
package flatbuffers

// 简单来说 FlatBuffers 就是把对象数据保存在一个一维的 byte 数组中，每个对象分为两部分：
//	元数据部分：vtable，负责存放索引；
//	真实数据部分：存放实际的值。
//
// 基本原则：
//	小端模式，各种基本类型都按小端存储；
//	写入方向和读取方向不同，Builder 从尾部向头部写，Table 从头部向尾部读，
//	这样读到的第一个 4B 就是根表的偏移。
//
// table 通过 vtable 间接访问字段。vtable 的格式为：
//	[vtable 字节数 u16][对象字节数 u16][字段 0 偏移 u16][字段 1 偏移 u16]...
// 偏移是相对于对象起点的，为 0 表示字段缺省，读取时返回默认值；
// 旧代码写出的 vtable 比新 schema 短，超出 vtable 长度的 slot 同样视为缺省。
// 对象的开头是 4B 的 SOffsetT，vtable 位置 = 对象位置 - SOffsetT。
// 多个布局完全相同的对象共享同一份 vtable。
//
// 简单类型和 struct 直接存放在对象中；string、vector、子表存放的是 UOffsetT，
// 目标位置 = 存放位置 + UOffsetT。
//
// 例子：
//	table MyTable {
//	  field0: int;     // slot 0
//	  field1: string;  // slot 1
//	  field2: int;     // slot 2
//	}
// field0 = 42，field1 = "hello"，field2 未设置。先 CreateString("hello")，再写表，
// Finish 之后得到 36 字节：
//
//	pos  bytes                          含义
//	 0   0C 00 00 00                    根表偏移，指向 12
//	 4   08 00 0C 00 08 00 04 00        vtable：8 字节，对象 12 字节，field0 在 +8，field1 在 +4
//	                                    （field2 缺省，尾部的 0 被裁掉）
//	12   08 00 00 00                    SOffsetT，vtable 在 12-8=4
//	16   08 00 00 00                    field1 的 UOffsetT，指向 16+8=24
//	20   2A 00 00 00                    field0 = 42
//	24   05 00 00 00 68 65 6C 6C 6F 00  "hello"，长度前缀加结尾的 0
//	34   00 00                          对齐填充
//
// 字段在 EndTable 时才按对齐从大到小写入，先写的在高地址，所以 field0 在 field1 之后。
